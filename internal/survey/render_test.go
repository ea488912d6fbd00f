package survey

import (
	"encoding/json"
	"testing"

	"github.com/Bossnicks/tone-survey/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	stim := catalog.Stimulus{Index: 4, File: "t05.wav"}
	tests := []struct {
		name    string
		snap    Snapshot
		actions []string
		check   func(t *testing.T, v View)
	}{
		{
			name:    "identity",
			snap:    Snapshot{State: StateAwaitingIdentity},
			actions: []string{ActionSubmitIdentity},
			check: func(t *testing.T, v View) {
				assert.Nil(t, v.PreSurvey)
				assert.Nil(t, v.Stimulus)
			},
		},
		{
			name:    "presurvey",
			snap:    Snapshot{State: StateAwaitingPreSurvey, Participant: Participant{ID: "p1"}},
			actions: []string{ActionSubmitPreSurvey},
			check: func(t *testing.T, v View) {
				require.NotNil(t, v.PreSurvey)
				assert.Equal(t, PitchAbilityOptions, v.PreSurvey.PitchAbility)
				assert.Equal(t, "p1", v.Participant)
			},
		},
		{
			name:    "in progress",
			snap:    Snapshot{State: StateInProgress, Cursor: 2, Total: 8, Current: &stim, BackupWarning: "db down"},
			actions: []string{ActionPlayStimulus, ActionSubmitRatings},
			check: func(t *testing.T, v View) {
				require.NotNil(t, v.Stimulus)
				assert.Equal(t, 4, v.Stimulus.Index)
				assert.Equal(t, 3, v.Stimulus.Position)
				assert.Equal(t, &ProgressView{Done: 2, Total: 8}, v.Progress)
				assert.Equal(t, 1, v.Scale.Min)
				assert.Equal(t, 5, v.Scale.Max)
				assert.Equal(t, "db down", v.Warning)
			},
		},
		{
			name:    "completed",
			snap:    Snapshot{State: StateCompleted, Cursor: 8, Total: 8},
			actions: []string{ActionDownloadOwn, ActionEndSession},
			check: func(t *testing.T, v View) {
				assert.Nil(t, v.Stimulus)
				assert.Equal(t, 8, v.Progress.Done)
			},
		},
		{
			name:    "admin",
			snap:    Snapshot{State: StateAdmin},
			actions: []string{ActionAdminSummary, ActionAdminExport, ActionAdminReset, ActionAdminExit},
			check: func(t *testing.T, v View) {
				assert.Nil(t, v.Progress)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Render(tt.snap)
			assert.Equal(t, tt.snap.State, v.State)
			assert.Equal(t, tt.actions, v.Actions)
			assert.NotEmpty(t, v.Prompt)
			tt.check(t, v)
		})
	}
}

func TestRender_Pure(t *testing.T) {
	stim := catalog.Stimulus{Index: 0, File: "a.wav"}
	snap := Snapshot{State: StateInProgress, Total: 1, Current: &stim}
	assert.Equal(t, Render(snap), Render(snap))
}

func TestState_JSON(t *testing.T) {
	b, err := json.Marshal(View{State: StateInProgress})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"state":"in_progress"`)

	var v View
	require.NoError(t, json.Unmarshal(b, &v))
	assert.Equal(t, StateInProgress, v.State)

	var s State
	assert.Error(t, s.UnmarshalText([]byte("paused")))
}
