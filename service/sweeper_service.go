package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"tempvoice/events"
	"tempvoice/models"
)

// sweeper implements the Sweeper interface.
//
// Reclamation is a poll-and-reconcile loop rather than per-channel timers:
// a timer per channel in an unbounded, churning set is harder to cancel
// correctly than one periodic full scan. Safety comes from re-checking live
// occupancy at the instant of the deletion decision, never from a cached
// flag.
type sweeper struct {
	uowFactory UnitOfWorkFactory
	client     ChannelClient
	now        func() time.Time
}

// NewSweeper creates a new sweeper
func NewSweeper(uowFactory UnitOfWorkFactory, client ChannelClient) Sweeper {
	return &sweeper{
		uowFactory: uowFactory,
		client:     client,
		now:        time.Now,
	}
}

// RunCycle scans every tracked channel once and reclaims the expired ones.
func (s *sweeper) RunCycle(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{}
	now := s.now()

	// Grace periods are per guild; cache configs for the cycle
	graceByGuild := make(map[int64]time.Duration)

	// Stream the full record set, collecting candidates whose grace window
	// has elapsed. Deletions happen after the scan so the cursor never
	// spans a Discord round trip.
	var candidates []*models.TempChannel
	err := s.scanRecords(ctx, func(channel *models.TempChannel) error {
		report.Scanned++

		if channel.LastEmptyAt == nil {
			// Never observed empty, so not reclaimable. The channel may
			// still have vanished externally while occupied; the
			// occupancy probe in reclaim surfaces that drift.
			candidates = append(candidates, channel)
			return nil
		}

		grace, ok := graceByGuild[channel.GuildID]
		if !ok {
			var err error
			grace, err = s.gracePeriod(ctx, channel.GuildID)
			if err != nil {
				log.WithFields(log.Fields{
					"guild_id": channel.GuildID,
					"error":    err,
				}).Error("Failed to load guild config during sweep, skipping guild")
				report.Failed++
				return nil
			}
			graceByGuild[channel.GuildID] = grace
		}

		if channel.EligibleForReclaim(now, grace) {
			candidates = append(candidates, channel)
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to scan temp channels: %w", err)
	}

	for _, channel := range candidates {
		if err := s.reclaim(ctx, channel, report); err != nil {
			// One channel's failure never aborts the cycle
			log.WithFields(log.Fields{
				"guild_id":   channel.GuildID,
				"channel_id": channel.ChannelID,
				"error":      err,
			}).Error("Failed to reclaim temp channel")
			report.Failed++
		}
	}

	return report, nil
}

// reclaim probes one candidate's live occupancy at the instant of the
// decision, deleting the channel when it expired empty and resolving drift
// when it is already gone.
func (s *sweeper) reclaim(ctx context.Context, channel *models.TempChannel, report *SweepReport) error {
	occupancy, err := s.client.Occupancy(ctx, channel.GuildID, channel.ChannelID)
	switch {
	case errors.Is(err, ErrChannelGone):
		// Drift: the external absence is authoritative, drop the record
		if err := s.deleteRecord(ctx, channel, events.RemovalReasonDrift); err != nil {
			return err
		}
		report.Drifted++
		return nil
	case err != nil:
		return fmt.Errorf("failed to resolve occupancy: %w", err)
	}

	if occupancy > 0 {
		// Repopulated since the scan; the router owns the last_empty_at
		// transition, so leave the record untouched
		return nil
	}

	if channel.LastEmptyAt == nil {
		// Empty but never stamped; only the router writes the timestamp
		return nil
	}

	if err := s.client.DeleteChannel(ctx, channel.ChannelID); err != nil && !errors.Is(err, ErrChannelGone) {
		return fmt.Errorf("failed to delete channel: %w", err)
	}

	if err := s.deleteRecord(ctx, channel, events.RemovalReasonExpired); err != nil {
		return err
	}
	report.Reclaimed++

	log.WithFields(log.Fields{
		"guild_id":   channel.GuildID,
		"channel_id": channel.ChannelID,
		"owner_id":   channel.OwnerID,
	}).Info("Reclaimed expired temp channel")

	return nil
}

func (s *sweeper) scanRecords(ctx context.Context, fn func(*models.TempChannel) error) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // Read-only

	return uow.TempChannelRepository().ScanAll(ctx, fn)
}

func (s *sweeper) gracePeriod(ctx context.Context, guildID int64) (time.Duration, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	config, err := uow.GuildConfigRepository().GetOrCreate(ctx, guildID)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return config.Settings.GracePeriod(), nil
}

func (s *sweeper) deleteRecord(ctx context.Context, channel *models.TempChannel, reason string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.TempChannelRepository().Delete(ctx, channel.ChannelID); err != nil {
		return fmt.Errorf("failed to delete temp channel record: %w", err)
	}

	uow.EventBus().Publish(events.ChannelRemovedEvent{
		GuildID:   channel.GuildID,
		ChannelID: channel.ChannelID,
		OwnerID:   channel.OwnerID,
		Reason:    reason,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
