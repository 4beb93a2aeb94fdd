package domain

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/your-org/faceid/internal/agentindex"
	"github.com/your-org/faceid/internal/bsm"
	"github.com/your-org/faceid/internal/models"
)

// GroupSync propagates one net profile-group membership change to the
// identity index. It must be constructed before the mutation is applied so
// prevCount snapshots the prior membership; the caller must not apply the
// same logical change twice, since the index calls carry no idempotency
// guarantee.
type GroupSync struct {
	index     IdentityIndex
	profileID uuid.UUID
	personID  uuid.UUID
	prevCount int
	template  *agentindex.Template
}

func NewGroupSync(index IdentityIndex, profileID, personID uuid.UUID, prevCount int, template *agentindex.Template) *GroupSync {
	return &GroupSync{
		index:     index,
		profileID: profileID,
		personID:  personID,
		prevCount: prevCount,
		template:  template,
	}
}

// Apply issues at most one index call for the membership transition. A nil
// group list is the no-op sentinel: "not changing groups" as opposed to
// "clearing groups" (an empty non-nil list).
func (g *GroupSync) Apply(ctx context.Context, newGroups []uuid.UUID) error {
	if newGroups == nil {
		return nil
	}

	entry := agentindex.ProfileEntry{
		ProfileID:     g.profileID,
		PersonID:      g.personID,
		ProfileGroups: newGroups,
		Template:      g.template,
	}

	switch {
	case g.prevCount == 0 && len(newGroups) > 0:
		return g.index.AddProfile(ctx, entry)
	case g.prevCount > 0 && len(newGroups) == 0:
		return g.index.DeleteProfile(ctx, g.profileID, g.personID)
	case g.prevCount > 0 && len(newGroups) > 0:
		return g.index.UpdateProfile(ctx, entry)
	default:
		// 0 -> 0: nothing to propagate.
		return nil
	}
}

// indexTemplate loads the index-side template for a profile from its main
// sample. A profile without a resolvable template is indexed without one.
func (s *Service) indexTemplate(ctx context.Context, ws *models.Workspace, profile *models.Profile) (*agentindex.Template, error) {
	mainSampleID, ok := profile.MainSampleID()
	if !ok {
		return nil, nil
	}
	sample, err := s.store.GetSample(ctx, ws.ID, mainSampleID)
	if err != nil {
		return nil, fmt.Errorf("load main sample: %w", err)
	}
	if sample == nil {
		return nil, nil
	}
	blobID, ok := bsm.TemplateBlobID(sample.Meta, s.ecfg.TemplateVersion)
	if !ok {
		return nil, nil
	}
	payload, err := s.store.GetBlobPayload(ctx, ws.ID, blobID)
	if err != nil {
		return nil, fmt.Errorf("load template blob: %w", err)
	}
	if payload == nil {
		return nil, nil
	}
	return &agentindex.Template{
		ID:         blobID,
		Type:       s.ecfg.TemplateVersion,
		BinaryData: base64.StdEncoding.EncodeToString(payload),
	}, nil
}

// SetProfileGroups replaces the profile's group membership and propagates
// the net change to the identity index exactly once. A nil list leaves
// membership untouched and triggers no index call.
func (s *Service) SetProfileGroups(ctx context.Context, ws *models.Workspace, profileID uuid.UUID, groups []uuid.UUID) (*models.Profile, error) {
	if len(groups) > 0 {
		count, err := s.store.CountActiveLabels(ctx, ws.ID, groups, models.LabelTypeProfileGroup)
		if err != nil {
			return nil, fmt.Errorf("validate groups: %w", err)
		}
		if count != len(groups) {
			return nil, NewError(CodeNotFound, "one or more profile groups do not exist")
		}
	}

	var profile *models.Profile
	err := s.store.WithTx(ctx, func(tx Tx) error {
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

		template, err := s.indexTemplate(ctx, ws, p)
		if err != nil {
			return err
		}
		sync := NewGroupSync(s.index, p.ID, p.PersonID, prev, template)

		if groups != nil {
			if err := tx.SetProfileGroups(ctx, p.ID, groups); err != nil {
				return fmt.Errorf("set profile groups: %w", err)
			}
			p.GroupIDs = groups
		}
		profile = p

		// The index call runs inside the owning transaction's logical
		// sequence but is itself not transactional; a failure rolls back
		// the relational change while the external call stays best-effort.
		return sync.Apply(ctx, groups)
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}
