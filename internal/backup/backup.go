package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/AegisGuard-sahil/AegisGuard/internal/platform"
	"github.com/AegisGuard-sahil/AegisGuard/internal/store"
	"github.com/AegisGuard-sahil/AegisGuard/pkg/util"
)

var ErrBackupNotFound = errors.New("backup not found")

// Snapshot is a structural capture of a community: roles, categories and
// channels with their permission overwrites.
type Snapshot struct {
	ID          string             `json:"id"`
	CommunityID string             `json:"community_id"`
	CreatedAt   int64              `json:"created_at"`
	Roles       []platform.Role    `json:"roles"`
	Categories  []platform.Channel `json:"categories"`
	Channels    []platform.Channel `json:"channels"`
}

// RestoreResult reports what a restore managed to rebuild. Failures on
// individual items do not abort the rest.
type RestoreResult struct {
	RolesCreated    int
	ChannelsCreated int
	RoleMap         map[string]string // old role id -> new role id
	ChannelMap      map[string]string
	Errors          []error
}

// Service creates and restores structural snapshots.
type Service struct {
	store *store.Store
	dir   platform.Directory
	clock util.Clock
}

func NewService(s *store.Store, dir platform.Directory, clock util.Clock) *Service {
	return &Service{store: s, dir: dir, clock: clock}
}

// Create captures the community's current structure and persists it.
func (s *Service) Create(ctx context.Context, communityID string) (*Snapshot, error) {
	roles, err := s.dir.ListRoles(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	channels, err := s.dir.ListChannels(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	snap := &Snapshot{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		CreatedAt:   s.clock.Now().Unix(),
	}

	for _, r := range roles {
		// Managed roles belong to integrations and cannot be recreated.
		if r.Managed {
			continue
		}
		snap.Roles = append(snap.Roles, r)
	}

	for _, ch := range channels {
		if ch.Type == platform.ChannelCategory {
			snap.Categories = append(snap.Categories, ch)
		} else {
			snap.Channels = append(snap.Channels, ch)
		}
	}

	sort.Slice(snap.Categories, func(i, j int) bool { return snap.Categories[i].Position < snap.Categories[j].Position })
	sort.Slice(snap.Channels, func(i, j int) bool { return snap.Channels[i].Position < snap.Channels[j].Position })

	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := s.store.InsertBackup(&store.BackupRecord{
		ID:          snap.ID,
		CommunityID: communityID,
		Payload:     payload,
		CreatedAt:   snap.CreatedAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	return snap, nil
}

// Get loads a snapshot by id.
func (s *Service) Get(id string) (*Snapshot, error) {
	rec, err := s.store.GetBackup(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrBackupNotFound
	}

	var snap Snapshot
	if err := json.Unmarshal(rec.Payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// List returns snapshot metadata for a community, newest first.
func (s *Service) List(communityID string) ([]*store.BackupRecord, error) {
	return s.store.ListBackups(communityID)
}

// Restore rebuilds a snapshot in dependency order: roles, then categories,
// then channels, remapping old ids to the newly created ones. Individual
// failures are collected; cancellation stops the remaining work.
func (s *Service) Restore(ctx context.Context, id string) (*RestoreResult, error) {
	snap, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{
		RoleMap:    make(map[string]string),
		ChannelMap: make(map[string]string),
	}

	for _, role := range snap.Roles {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		newID, err := s.dir.CreateRole(ctx, snap.CommunityID, role)
		if err != nil {
			result.Errors = append(result.Errors, &platform.ActionError{Action: "create_role", Target: role.Name, Err: err})
			continue
		}
		result.RoleMap[role.ID] = newID
		result.RolesCreated++
	}

	for _, cat := range snap.Categories {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		remapOverwrites(&cat, result.RoleMap)
		newID, err := s.dir.CreateCategory(ctx, snap.CommunityID, cat)
		if err != nil {
			result.Errors = append(result.Errors, &platform.ActionError{Action: "create_category", Target: cat.Name, Err: err})
			continue
		}
		result.ChannelMap[cat.ID] = newID
		result.ChannelsCreated++
	}

	for _, ch := range snap.Channels {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		remapOverwrites(&ch, result.RoleMap)
		if mapped, ok := result.ChannelMap[ch.ParentID]; ok {
			ch.ParentID = mapped
		} else {
			ch.ParentID = ""
		}
		newID, err := s.dir.CreateChannel(ctx, snap.CommunityID, ch)
		if err != nil {
			result.Errors = append(result.Errors, &platform.ActionError{Action: "create_channel", Target: ch.Name, Err: err})
			continue
		}
		result.ChannelMap[ch.ID] = newID
		result.ChannelsCreated++
	}

	return result, nil
}

// remapOverwrites rewrites role-targeted overwrites to the restored role ids.
// Overwrites whose role no longer maps are dropped.
func remapOverwrites(ch *platform.Channel, roleMap map[string]string) {
	kept := ch.Overwrites[:0]
	for _, ow := range ch.Overwrites {
		if ow.TargetType == "role" {
			mapped, ok := roleMap[ow.TargetID]
			if !ok {
				continue
			}
			ow.TargetID = mapped
		}
		kept = append(kept, ow)
	}
	ch.Overwrites = kept
}
