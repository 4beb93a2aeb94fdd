package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/bsm"
	"github.com/your-org/faceid/internal/engine"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/internal/observability"
)

// CreateProfileParams describe a new identity: a face image for quality-
// gated enrollment, optional caller-supplied info and an optional initial
// group membership (nil means no membership and no index call).
type CreateProfileParams struct {
	Image    []byte
	Info     bsm.Document
	GroupIDs []uuid.UUID
}

// CreateProfile enrolls the image, creates the person/profile pair and
// links the enrolled sample as the profile's main sample. Initial group
// membership is propagated to the index as a 0 -> n transition.
func (s *Service) CreateProfile(ctx context.Context, ws *models.Workspace, p CreateProfileParams) (*models.Profile, error) {
	if len(p.GroupIDs) > 0 {
		count, err := s.store.CountActiveLabels(ctx, ws.ID, p.GroupIDs, models.LabelTypeProfileGroup)
		if err != nil {
			return nil, fmt.Errorf("validate groups: %w", err)
		}
		if count != len(p.GroupIDs) {
			return nil, NewError(CodeNotFound, "one or more profile groups do not exist")
		}
	}

	sample, _, err := s.EnrollSample(ctx, ws, p.Image)
	if err != nil {
		return nil, err
	}

	info := bsm.Document{}
	for k, v := range p.Info {
		info[k] = v
	}
	info["main_sample_id"] = sample.ID.String()
	if avatarID, ok := bsm.ImageBlobID(sample.Meta); ok {
		info["avatar_id"] = avatarID.String()
	}
	mergeDerivedInfo(info, sample.Meta)

	profile := &models.Profile{
		ID:          uuid.New(),
		WorkspaceID: ws.ID,
		PersonID:    uuid.New(),
		Info:        info,
		GroupIDs:    p.GroupIDs,
	}

	err = s.store.WithTx(ctx, func(tx Tx) error {
		person := &models.Person{
			ID:          profile.PersonID,
			WorkspaceID: ws.ID,
			ProfileID:   &profile.ID,
			Info:        bsm.Document{},
		}
		if err := tx.CreatePerson(ctx, person); err != nil {
			return fmt.Errorf("create person: %w", err)
		}
		if err := tx.CreateProfile(ctx, profile); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		if err := tx.LinkPersonSample(ctx, person.ID, sample.ID); err != nil {
			return fmt.Errorf("link person sample: %w", err)
		}
		if err := tx.LinkProfileSample(ctx, profile.ID, sample.ID); err != nil {
			return fmt.Errorf("link profile sample: %w", err)
		}

		if p.GroupIDs == nil {
			return nil
		}
		if err := tx.SetProfileGroups(ctx, profile.ID, p.GroupIDs); err != nil {
			return fmt.Errorf("set profile groups: %w", err)
		}

		template, err := s.indexTemplate(ctx, ws, profile)
		if err != nil {
			return err
		}
		return NewGroupSync(s.index, profile.ID, profile.PersonID, 0, template).Apply(ctx, p.GroupIDs)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// mergeDerivedInfo backfills age/gender estimates from the enrolled face
// object into the profile info.
func mergeDerivedInfo(info bsm.Document, sampleMeta bsm.Document) {
	_ = bsm.Walk(sampleMeta, func(n bsm.Node) error {
		obj, ok := n.Value.(map[string]any)
		if !ok || engine.Class(obj) != "face" {
			return nil
		}
		if age, ok := obj["age"]; ok {
			if _, set := info["age"]; !set {
				info["age"] = age
			}
		}
		if gender, ok := obj["gender"]; ok {
			if _, set := info["gender"]; !set {
				info["gender"] = gender
			}
		}
		return nil
	})
}

// DeleteProfile removes the profile, its person, every linked sample (with
// blob cascade), and notifications referencing the profile. When the
// profile was group-indexed, exactly one index delete follows.
func (s *Service) DeleteProfile(ctx context.Context, ws *models.Workspace, profileID uuid.UUID) error {
	return s.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.ProfileForUpdate(ctx, ws.ID, profileID)
		if err != nil {
			return err
		}
		if p == nil {
			return NewError(CodeNotFound, "profile not found")
		}

		prev, err := tx.ProfileGroupCount(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("count profile groups: %w", err)
		}

		activityDocs, err := tx.ActivityDataForPerson(ctx, p.PersonID)
		if err != nil {
			return fmt.Errorf("load activity data: %w", err)
		}
		exclude := ExcludeSet(activityDocs...)

		sampleIDs, err := tx.ProfileSampleIDs(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("list profile samples: %w", err)
		}
		for _, sampleID := range sampleIDs {
			sample, err := tx.SampleForUpdate(ctx, ws.ID, sampleID)
			if err != nil {
				return err
			}
			if sample == nil {
				continue
			}
			if err := DeleteBlobs(ctx, tx, sample.Meta, exclude); err != nil {
				return err
			}
			if err := tx.DeleteSampleTemplates(ctx, sampleID); err != nil {
				return fmt.Errorf("delete sample templates: %w", err)
			}
			if err := tx.DeleteSampleRow(ctx, sampleID); err != nil {
				return fmt.Errorf("delete sample row: %w", err)
			}
			observability.SamplesDeleted.WithLabelValues(ws.ID.String()).Inc()
		}

		if err := tx.DeleteNotificationsByProfile(ctx, p.ID); err != nil {
			return fmt.Errorf("delete notifications: %w", err)
		}
		if err := tx.DeleteProfileRow(ctx, p.ID); err != nil {
			return fmt.Errorf("delete profile row: %w", err)
		}
		if err := tx.DeletePersonRow(ctx, p.PersonID); err != nil {
			return fmt.Errorf("delete person row: %w", err)
		}

		if prev > 0 {
			return s.index.DeleteProfile(ctx, p.ID, p.PersonID)
		}
		return nil
	})
}

// UpdateProfileInfo merges the patch into the profile info document.
func (s *Service) UpdateProfileInfo(ctx context.Context, ws *models.Workspace, profileID uuid.UUID, patch bsm.Document) (*models.Profile, error) {
	var profile *models.Profile
	err := s.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.ProfileForUpdate(ctx, ws.ID, profileID)
		if err != nil {
			return err
		}
		if p == nil {
			return NewError(CodeNotFound, "profile not found")
		}
		for k, v := range patch {
			p.Info[k] = v
		}
		if err := tx.UpdateProfileInfo(ctx, p.ID, p.Info); err != nil {
			return fmt.Errorf("update profile info: %w", err)
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}
