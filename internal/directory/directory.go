// Package directory provides the default UserDirectory and BlockResolver
// implementations backed by the SQLite profile and block tables.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/example/wavemeet/internal/application"
	"github.com/example/wavemeet/internal/persistence"
)

// Defaults applied when the configured cache settings are not positive.
const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = 5 * time.Minute

	maxDisplayNameLength = 64
	maxUsernameLength    = 32
	maxAvatarURLLength   = 2048
)

// ProfileDirectory resolves profiles from storage through an expirable LRU
// cache. Only known users are cached; unknown IDs are looked up every time.
type ProfileDirectory struct {
	profiles persistence.ProfileRepository
	cache    *expirable.LRU[string, application.Profile]
	now      func() time.Time
	logger   *slog.Logger
}

// NewProfileDirectory constructs a cached directory over profiles.
func NewProfileDirectory(profiles persistence.ProfileRepository, size int, ttl time.Duration, now func() time.Time, logger *slog.Logger) *ProfileDirectory {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileDirectory{
		profiles: profiles,
		cache:    expirable.NewLRU[string, application.Profile](size, nil, ttl),
		now:      now,
		logger:   logger.With("component", "directory"),
	}
}

// LookupProfiles implements application.UserDirectory.
func (d *ProfileDirectory) LookupProfiles(ctx context.Context, userIDs []string) (map[string]application.Profile, error) {
	result := make(map[string]application.Profile, len(userIDs))
	var missing []string
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		if profile, ok := d.cache.Get(id); ok {
			result[id] = profile
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	records, err := d.profiles.GetProfiles(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("directory: lookup profiles: %w", err)
	}
	for id, record := range records {
		profile := fromProfileRecord(record)
		d.cache.Add(id, profile)
		result[id] = profile
	}
	d.logger.DebugContext(ctx, "profiles loaded", "requested", len(missing), "found", len(records))
	return result, nil
}

// SaveProfile validates and stores the caller's own profile, then drops the cached copy.
func (d *ProfileDirectory) SaveProfile(ctx context.Context, principal application.Principal, profile application.Profile) (application.Profile, error) {
	if strings.TrimSpace(principal.UserID) == "" {
		return application.Profile{}, application.ErrUnauthenticated
	}

	profile.UserID = principal.UserID
	profile.Username = strings.TrimSpace(profile.Username)
	profile.DisplayName = strings.TrimSpace(profile.DisplayName)
	profile.AvatarURL = strings.TrimSpace(profile.AvatarURL)

	fieldErrors := map[string]string{}
	if utf8.RuneCountInString(profile.Username) > maxUsernameLength {
		fieldErrors["username"] = fmt.Sprintf("must be at most %d characters", maxUsernameLength)
	}
	if utf8.RuneCountInString(profile.DisplayName) > maxDisplayNameLength {
		fieldErrors["display_name"] = fmt.Sprintf("must be at most %d characters", maxDisplayNameLength)
	}
	if len(profile.AvatarURL) > maxAvatarURLLength {
		fieldErrors["avatar_url"] = "is too long"
	} else if profile.AvatarURL != "" && !strings.HasPrefix(profile.AvatarURL, "https://") {
		fieldErrors["avatar_url"] = "must be an https URL"
	}
	if len(fieldErrors) > 0 {
		return application.Profile{}, &application.ValidationError{FieldErrors: fieldErrors}
	}

	err := d.profiles.UpsertProfile(ctx, persistence.UserProfile{
		UserID:      profile.UserID,
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
		UpdatedAt:   d.now().UTC(),
	})
	if err != nil {
		return application.Profile{}, fmt.Errorf("directory: save profile: %w", err)
	}
	d.cache.Remove(profile.UserID)
	return profile, nil
}

func fromProfileRecord(r persistence.UserProfile) application.Profile {
	return application.Profile{
		UserID:      r.UserID,
		Username:    r.Username,
		DisplayName: r.DisplayName,
		AvatarURL:   r.AvatarURL,
	}
}

// BlockList resolves block relationships from storage. It is not cached:
// a block must take effect on the very next read.
type BlockList struct {
	blocks persistence.BlockRepository
	now    func() time.Time
}

// NewBlockList constructs a BlockList.
func NewBlockList(blocks persistence.BlockRepository, now func() time.Time) *BlockList {
	if now == nil {
		now = time.Now
	}
	return &BlockList{blocks: blocks, now: now}
}

// BlockedUserIDs implements application.BlockResolver.
func (b *BlockList) BlockedUserIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := b.blocks.ListBlockedUserIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("directory: list blocks: %w", err)
	}
	return ids, nil
}

// Block records that the caller blocked blockedID. Blocking twice is a no-op.
func (b *BlockList) Block(ctx context.Context, principal application.Principal, blockedID string) error {
	if strings.TrimSpace(principal.UserID) == "" {
		return application.ErrUnauthenticated
	}
	blockedID = strings.TrimSpace(blockedID)
	switch {
	case blockedID == "":
		return &application.ValidationError{FieldErrors: map[string]string{"user_id": "is required"}}
	case blockedID == principal.UserID:
		return &application.ValidationError{FieldErrors: map[string]string{"user_id": "cannot block yourself"}}
	}

	if err := b.blocks.BlockUser(ctx, principal.UserID, blockedID, b.now().UTC()); err != nil {
		if errors.Is(err, persistence.ErrConstraintViolation) {
			return &application.ValidationError{FieldErrors: map[string]string{"user_id": "is invalid"}}
		}
		return fmt.Errorf("directory: block user: %w", err)
	}
	return nil
}
