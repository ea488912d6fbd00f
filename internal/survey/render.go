package survey

// View - то, что видит клиент после каждого действия. Строится только из Snapshot.
type View struct {
	State       State            `json:"state"`
	Prompt      string           `json:"prompt"`
	Actions     []string         `json:"actions"`
	Participant string           `json:"participant,omitempty"`
	PreSurvey   *PreSurveyView   `json:"presurvey,omitempty"`
	Stimulus    *StimulusView    `json:"stimulus,omitempty"`
	Scale       *RatingScaleView `json:"scale,omitempty"`
	Progress    *ProgressView    `json:"progress,omitempty"`
	Warning     string           `json:"warning,omitempty"`
}

type PreSurveyView struct {
	PitchAbility         []string `json:"pitch_ability"`
	InstrumentExperience []string `json:"instrument_experience"`
}

type StimulusView struct {
	Index    int    `json:"index"`
	File     string `json:"file"`
	Position int    `json:"position"`
	AudioURL string `json:"audio_url"`
}

type RatingScaleView struct {
	Min        int      `json:"min"`
	Max        int      `json:"max"`
	Dimensions []string `json:"dimensions"`
}

type ProgressView struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

const (
	ActionSubmitIdentity  = "submit_identity"
	ActionSubmitPreSurvey = "submit_presurvey"
	ActionPlayStimulus    = "play_stimulus"
	ActionSubmitRatings   = "submit_ratings"
	ActionDownloadOwn     = "download_own_rows"
	ActionEndSession      = "end_session"
	ActionAdminSummary    = "admin_summary"
	ActionAdminExport     = "admin_export"
	ActionAdminReset      = "admin_reset"
	ActionAdminExit       = "admin_exit"
)

func Render(snap Snapshot) View {
	v := View{
		State:       snap.State,
		Participant: snap.Participant.ID,
		Warning:     snap.BackupWarning,
	}

	switch snap.State {
	case StateAwaitingIdentity:
		v.Prompt = "Введите идентификатор участника"
		v.Actions = []string{ActionSubmitIdentity}
	case StateAwaitingPreSurvey:
		v.Prompt = "Ответьте на вопросы перед началом"
		v.Actions = []string{ActionSubmitPreSurvey}
		v.PreSurvey = &PreSurveyView{
			PitchAbility:         append([]string(nil), PitchAbilityOptions...),
			InstrumentExperience: append([]string(nil), InstrumentExperienceOptions...),
		}
	case StateInProgress:
		v.Prompt = "Прослушайте звук и оцените его"
		v.Actions = []string{ActionPlayStimulus, ActionSubmitRatings}
		v.Progress = &ProgressView{Done: snap.Cursor, Total: snap.Total}
		v.Scale = &RatingScaleView{Min: RatingMin, Max: RatingMax, Dimensions: []string{"valence", "arousal", "diff"}}
		if snap.Current != nil {
			v.Stimulus = &StimulusView{
				Index:    snap.Current.Index,
				File:     snap.Current.File,
				Position: snap.Cursor + 1,
				AudioURL: "/survey/stimulus",
			}
		}
	case StateCompleted:
		v.Prompt = "Спасибо! Анкета завершена"
		v.Actions = []string{ActionDownloadOwn, ActionEndSession}
		v.Progress = &ProgressView{Done: snap.Cursor, Total: snap.Total}
	case StateAdmin:
		v.Prompt = "Режим администратора"
		v.Actions = []string{ActionAdminSummary, ActionAdminExport, ActionAdminReset, ActionAdminExit}
	}
	return v
}
