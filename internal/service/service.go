package service

import (
	"context"

	"github.com/shopspring/decimal"

	"smart_switch/internal/logger"
	"smart_switch/internal/models"
	"smart_switch/internal/repository"
	"smart_switch/internal/rules"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Switch is the manual relay surface.
type Switch interface {
	Dashboard(ctx context.Context) (models.Dashboard, error)
	SetRelay(ctx context.Context, on bool) (models.RelayResult, error)
	ToggleRelay(ctx context.Context) (models.RelayResult, error)
}

type Timers interface {
	ListTimers(ctx context.Context) ([]models.Timer, error)
	CreateTimer(ctx context.Context, t models.Timer) (models.Timer, error)
	DeleteTimer(ctx context.Context, id string) error
	SetTimerEnabled(ctx context.Context, id string, enabled bool) (models.Timer, error)
}

type Devices interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
	SetDeviceStatus(ctx context.Context, id string, on bool) (models.Device, error)
	SetAllDevices(ctx context.Context, on bool) (models.FanOutReport, error)
}

type Safety interface {
	SafetyStatus(ctx context.Context) (models.SafetyStatus, error)
	EmergencyShutdown(ctx context.Context) (models.FanOutReport, error)
	ResetEmergency(ctx context.Context) error
}

type Billing interface {
	Tariff() rules.Tariff
	Quote(units decimal.Decimal) models.Quote
}

type Usage interface {
	History(ctx context.Context, from, to string) ([]models.DailyUsage, error)
}

type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.SwitchEvent, error)
}

type Push interface {
	VAPIDPublicKey() string
	SubscribePush(ctx context.Context, sub models.PushSubscription) error
}

// Runner owns the background loop. Stop it by canceling ctx.
type Runner interface {
	Run(ctx context.Context) error
}

type Service struct {
	Switch
	Timers
	Devices
	Safety
	Billing
	Usage
	EventLog
	Push
	Runner
	Authorization

	// Simulator feeds synthetic telemetry; serve starts it on demand.
	Simulator *SimulatorService
}

// NewService wires repositories into services. Extra notifiers (the MQTT
// alert publisher) are fanned out next to the log and web-push notifiers.
func NewService(repos *repository.Repository, cfg Config, log *logger.Logger, extra ...Notifier) *Service {
	if log == nil {
		log = logger.Nop()
	}
	cfg = cfg.withDefaults()

	push := NewPushService(repos.Push, cfg.Push, log)
	notifiers := append([]Notifier{NewLogNotifier(log), push}, extra...)
	dispatcher := NewDispatcher(cfg.NotifyWorkers, cfg.NotifyQueue, log, notifiers...)

	billing := NewBillingService(cfg.Tariff)
	ctl := NewController(repos.Store, repos.EventRepo, repos.Usage, dispatcher, cfg, log)

	return &Service{
		Switch:        ctl,
		Timers:        NewTimerService(repos.Store, repos.EventRepo, ctl, log),
		Devices:       NewDeviceService(repos.Store, ctl, cfg.WriteTimeout),
		Safety:        ctl,
		Billing:       billing,
		Usage:         NewUsageService(repos.Usage),
		EventLog:      NewEventLogService(repos.EventRepo),
		Push:          push,
		Runner:        runners{dispatcher, ctl},
		Authorization: NewAuthService(repos.Auth, cfg.Auth),
		Simulator:     NewSimulatorService(repos.Store, cfg.SimulatorLoadW, log),
	}
}

// runners starts the notification workers alongside the controller loop.
type runners struct {
	dispatcher *Dispatcher
	ctl        *Controller
}

func (r runners) Run(ctx context.Context) error {
	r.dispatcher.Start(ctx)
	return r.ctl.Run(ctx)
}
