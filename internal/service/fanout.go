package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"smart_switch/internal/models"
	"smart_switch/internal/repository"
)

// fanOut writes every target concurrently and reports which ones landed.
func fanOut(ctx context.Context, store repository.KVStore, targets map[string]json.RawMessage, timeout time.Duration) models.FanOutReport {
	type result struct {
		key string
		err error
	}
	results := make(chan result, len(targets))

	var wg sync.WaitGroup
	for key, value := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			results <- result{key: key, err: store.Set(wctx, key, value)}
		}()
	}
	wg.Wait()
	close(results)

	report := models.FanOutReport{Succeeded: []string{}}
	for r := range results {
		if r.err != nil {
			if report.Failed == nil {
				report.Failed = make(map[string]string)
			}
			report.Failed[r.key] = r.err.Error()
			continue
		}
		report.Succeeded = append(report.Succeeded, r.key)
	}
	sort.Strings(report.Succeeded)
	report.Outcome = outcomeOf(report)
	return report
}

func outcomeOf(r models.FanOutReport) models.FanOutOutcome {
	switch {
	case len(r.Failed) == 0:
		return models.FanOutComplete
	case len(r.Succeeded) == 0:
		return models.FanOutFailed
	default:
		return models.FanOutPartial
	}
}
