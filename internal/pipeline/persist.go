package pipeline

import (
	"context"
	"strings"

	"resumeflow/internal/metrics"
	"resumeflow/internal/models"
	"resumeflow/internal/profile"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NilProfileID is returned when a profile write fails.
var NilProfileID = uuid.Nil.String()

// ProfileStore is the sparse-write surface of the profile table. Callers only
// ever pass present values, so an absent attribute is never written.
type ProfileStore interface {
	FindProfileIDByOwner(ctx context.Context, ownerID string) (string, bool, error)
	UpdateProfile(ctx context.Context, profileID string, values []profile.Value) error
	// InsertProfile creates the owner's row, or merges values into it when a
	// concurrent run inserted it first.
	InsertProfile(ctx context.Context, ownerID string, values []profile.Value, placeholderName string) (string, error)
}

// UserStore receives the narrow onboarding extraction.
type UserStore interface {
	UpsertOnboardingProfile(ctx context.Context, ownerID string, values []profile.Value) (string, error)
}

type PersistInput struct {
	OwnerID         string             `json:"owner_id"`
	Profile         profile.Extraction `json:"profile"`
	FieldsExtracted []string           `json:"fields_extracted"`
}

type PersistResult struct {
	ProfileID     string              `json:"profile_id"`
	FieldsUpdated []string            `json:"fields_updated"`
	UpdateStatus  models.UpdateStatus `json:"update_status"`
	Error         string              `json:"error,omitempty"`
}

type ProfilePersister struct {
	store       ProfileStore
	placeholder string
	log         zerolog.Logger
}

func NewProfilePersister(store ProfileStore, placeholderName string, log zerolog.Logger) *ProfilePersister {
	if strings.TrimSpace(placeholderName) == "" {
		placeholderName = "Anonymous"
	}
	return &ProfilePersister{
		store:       store,
		placeholder: placeholderName,
		log:         log.With().Str("stage", string(models.StageProfileUpdate)).Logger(),
	}
}

// Persist merges the present attributes into the owner's profile. Database
// errors are reported through UpdateStatus, never returned.
func (p *ProfilePersister) Persist(ctx context.Context, in PersistInput) PersistResult {
	log := p.log.With().Str("owner_id", in.OwnerID).Logger()
	if strings.TrimSpace(in.OwnerID) == "" {
		return persistFailed(log, ErrMissingOwner)
	}
	values := profile.Values(profile.Normalize(in.Profile), profile.Fields)

	id, found, err := p.store.FindProfileIDByOwner(ctx, in.OwnerID)
	if err != nil {
		return persistFailed(log, err)
	}
	if found {
		if len(values) > 0 {
			if err := p.store.UpdateProfile(ctx, id, values); err != nil {
				return persistFailed(log, err)
			}
		}
	} else {
		id, err = p.store.InsertProfile(ctx, in.OwnerID, values, p.placeholder)
		if err != nil {
			return persistFailed(log, err)
		}
	}
	return persistDone(log, id, values)
}

func persistDone(log zerolog.Logger, id string, values []profile.Value) PersistResult {
	updated := keysOf(values)
	status := models.UpdateSuccess
	if len(updated) == 0 {
		status = models.UpdatePartial
	}
	metrics.IncProfileWrite(string(status))
	log.Info().Str("profile_id", id).Strs("fields_updated", updated).Str("update_status", string(status)).Msg("profile persisted")
	return PersistResult{ProfileID: id, FieldsUpdated: updated, UpdateStatus: status}
}

func persistFailed(log zerolog.Logger, err error) PersistResult {
	metrics.IncProfileWrite(string(models.UpdateFailed))
	log.Error().Err(err).Msg("profile write failed")
	return PersistResult{
		ProfileID:     NilProfileID,
		FieldsUpdated: []string{},
		UpdateStatus:  models.UpdateFailed,
		Error:         err.Error(),
	}
}

// OnboardingPersister writes the narrow extraction into the users row.
type OnboardingPersister struct {
	store UserStore
	log   zerolog.Logger
}

func NewOnboardingPersister(store UserStore, log zerolog.Logger) *OnboardingPersister {
	return &OnboardingPersister{store: store, log: log.With().Str("stage", string(models.StageProfileUpdate)).Str("mode", string(models.ModeOnboarding)).Logger()}
}

func (o *OnboardingPersister) Persist(ctx context.Context, in PersistInput) PersistResult {
	log := o.log.With().Str("owner_id", in.OwnerID).Logger()
	if strings.TrimSpace(in.OwnerID) == "" {
		return persistFailed(log, ErrMissingOwner)
	}
	fields := profile.OnboardingFields()
	values := profile.Values(profile.Restrict(profile.Normalize(in.Profile), fields), fields)
	id, err := o.store.UpsertOnboardingProfile(ctx, in.OwnerID, values)
	if err != nil {
		return persistFailed(log, err)
	}
	return persistDone(log, id, values)
}

func keysOf(values []profile.Value) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.Key)
	}
	return out
}
