package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Tick is one janitor pass: refill voice budgets, close idle connections
// and prune expired bans.
func (o *Orchestrator) Tick() {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	perTick := o.cfg.BandwidthPerTick()
	top := perTick + perTick/4
	for _, s := range o.Registry.All() {
		s.Bandwidth = min(s.Bandwidth+perTick, top)

		if o.cfg.InactivityTimeout > 0 && now.Sub(s.LastActivity) > o.cfg.InactivityTimeout && !s.Outbox.Closed() {
			log.Info().Str("module", "orch.janitor").Uint32("session", uint32(s.ID)).Str("name", s.Name).Msg("timeout, closing")
			o.disconnect(s)
		}
	}

	o.pruneUDPFailures()

	if o.Bans == nil {
		return
	}
	n, err := o.Bans.Prune(now)
	if err != nil {
		log.Error().Str("module", "orch.janitor").Err(err).Msg("ban prune failed")
		return
	}
	if n > 0 {
		log.Info().Str("module", "orch.janitor").Int("pruned", n).Msg("expired bans removed")
	}
}

// RunJanitor ticks on the configured interval until ctx is done.
func (o *Orchestrator) RunJanitor(ctx context.Context) error {
	t := time.NewTicker(o.cfg.JanitorInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			o.Tick()
		}
	}
}
