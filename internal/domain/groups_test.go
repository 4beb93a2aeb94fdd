package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/faceid/internal/models"
)

func TestGroupSyncApply_Transitions(t *testing.T) {
	profileID, personID := uuid.New(), uuid.New()
	group := uuid.New()

	tests := []struct {
		name      string
		prevCount int
		newGroups []uuid.UUID
		want      string // expected index action, "" for none
	}{
		{"nil is the no-op sentinel", 3, nil, ""},
		{"zero to some adds", 0, []uuid.UUID{group}, "add"},
		{"some to zero deletes", 2, []uuid.UUID{}, "delete"},
		{"some to some updates", 1, []uuid.UUID{group}, "update"},
		{"zero to zero does nothing", 0, []uuid.UUID{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := &fakeIndex{}
			sync := NewGroupSync(index, profileID, personID, tt.prevCount, nil)

			require.NoError(t, sync.Apply(context.Background(), tt.newGroups))

			if tt.want == "" {
				assert.Empty(t, index.calls)
				return
			}
			require.Len(t, index.calls, 1)
			assert.Equal(t, tt.want, index.calls[0].action)
			assert.Equal(t, profileID, index.calls[0].profileID)
		})
	}
}

func addProfileGroup(store *fakeStore, ws *models.Workspace) *models.Label {
	label := &models.Label{
		ID:          uuid.New(),
		WorkspaceID: ws.ID,
		Title:       "visitors",
		Type:        models.LabelTypeProfileGroup,
		IsActive:    true,
	}
	store.labels[label.ID] = label
	return label
}

func addProfile(store *fakeStore, ws *models.Workspace) *models.Profile {
	profile := &models.Profile{
		ID:          uuid.New(),
		WorkspaceID: ws.ID,
		PersonID:    uuid.New(),
		Info:        map[string]any{},
	}
	store.profiles[profile.ID] = profile
	return profile
}

func TestSetProfileGroups_AddAndClear(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	index := &fakeIndex{}
	svc := newTestService(store, nil, index)

	profile := addProfile(store, ws)
	group := addProfileGroup(store, ws)

	// 0 -> 1: one add call.
	updated, err := svc.SetProfileGroups(context.Background(), ws, profile.ID, []uuid.UUID{group.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{group.ID}, updated.GroupIDs)
	require.Len(t, index.calls, 1)
	assert.Equal(t, "add", index.calls[0].action)

	// 1 -> 0: one delete call.
	_, err = svc.SetProfileGroups(context.Background(), ws, profile.ID, []uuid.UUID{})
	require.NoError(t, err)
	require.Len(t, index.calls, 2)
	assert.Equal(t, "delete", index.calls[1].action)
}

func TestSetProfileGroups_NilLeavesMembership(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	index := &fakeIndex{}
	svc := newTestService(store, nil, index)

	profile := addProfile(store, ws)
	group := addProfileGroup(store, ws)
	store.profileGroups[profile.ID] = []uuid.UUID{group.ID}

	updated, err := svc.SetProfileGroups(context.Background(), ws, profile.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{group.ID}, updated.GroupIDs)
	assert.Empty(t, index.calls)
}

func TestSetProfileGroups_RejectsUnknownGroup(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	svc := newTestService(store, nil, nil)

	profile := addProfile(store, ws)

	_, err := svc.SetProfileGroups(context.Background(), ws, profile.ID, []uuid.UUID{uuid.New()})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeNotFound))
}

func TestSetProfileGroups_RejectsInactiveGroup(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	svc := newTestService(store, nil, nil)

	profile := addProfile(store, ws)
	group := addProfileGroup(store, ws)
	group.IsActive = false

	_, err := svc.SetProfileGroups(context.Background(), ws, profile.ID, []uuid.UUID{group.ID})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeNotFound))
}

func TestSetProfileGroups_IndexErrorPropagates(t *testing.T) {
	store := newFakeStore()
	ws := store.addWorkspace(nil)
	index := &fakeIndex{err: errors.New("index unavailable")}
	svc := newTestService(store, nil, index)

	profile := addProfile(store, ws)
	group := addProfileGroup(store, ws)

	_, err := svc.SetProfileGroups(context.Background(), ws, profile.ID, []uuid.UUID{group.ID})
	assert.Error(t, err)
}
