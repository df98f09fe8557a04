// Package model defines the parsed playlist document: an immutable value
// tree describing subjects, timed media items, overlays, questions, and
// branching rules. The playback components only read these structures;
// all runtime state lives in internal/playback.
package model

// Playlist is the top-level container loaded from a playlist document.
type Playlist struct {
	Version     int                 `yaml:"version"`
	FirstSubject string             `yaml:"firstSubject"`
	Subjects    []*Subject          `yaml:"subjects"`
	Init        []VariableModifier  `yaml:"init"`

	// Media is the flat registry of every media item referenced anywhere
	// in the document, in declaration order. Populated by the loader,
	// which also assigns each item its unique numeric ID.
	Media []*Media `yaml:"-"`

	subjectsByID map[string]*Subject
}

// Subject is a named branch of the presentation with its own timeline.
type Subject struct {
	ID          string             `yaml:"id"`
	Description string             `yaml:"description"`
	Sequence    Sequence           `yaml:"sequence"`
	LeadsTo     []LeadsTo          `yaml:"leadsTo"`
	Swipe       map[string]LeadsTo `yaml:"swipe"`
	Modifiers   []VariableModifier `yaml:"score"`
}

// Order modes for a sequence.
const (
	OrderDefault = "default"
	OrderRandom  = "random"
)

// Sequence is an ordered list of playable items.
type Sequence struct {
	Order string          `yaml:"order"`
	Items []SequenceItem  `yaml:"items"`
}

// SequenceItem is either a media item or a parallel group. Exactly one of
// the fields is set. Parallel groups are part of the document format but
// playback does not drive them; see playback.SequencePlayer.
type SequenceItem struct {
	Media    *Media    `yaml:"media"`
	Parallel *Parallel `yaml:"parallel"`
}

// Parallel is a reserved group of items meant to play concurrently.
type Parallel struct {
	Items []SequenceItem `yaml:"items"`
}

// Media describes one timed media item. Duration and start times are
// milliseconds throughout the document.
type Media struct {
	Kind      string             `yaml:"type"`
	Duration  int                `yaml:"duration"`
	Repeat    bool               `yaml:"repeat"`
	Overlays  []*Overlay         `yaml:"overlays"`
	Questions []*QuestionList    `yaml:"questionLists"`
	LeadsTo   []LeadsTo          `yaml:"leadsTo"`
	Modifiers []VariableModifier `yaml:"score"`

	// Extra carries kind-specific attributes (source URL, mute flag,
	// iframe dimensions, ...) opaquely to the media implementation.
	Extra map[string]interface{} `yaml:"attributes"`

	// ID is assigned by the loader: unique, monotonically increasing,
	// stable for the lifetime of the document.
	ID int `yaml:"-"`
}

// Overlay is a clickable region shown over a media item for a time window.
// A Duration of 0 means the overlay stays up until the media item ends.
type Overlay struct {
	StartTime int                    `yaml:"startTime"`
	Duration  int                    `yaml:"duration"`
	LeadsTo   []LeadsTo              `yaml:"leadsTo"`
	Modifiers []VariableModifier     `yaml:"score"`
	Attrs     map[string]interface{} `yaml:"attributes"`
}

// EndTime returns the play time at which the overlay must be torn down,
// or 0 when the overlay has no timed end.
func (o *Overlay) EndTime() int {
	if o.Duration == 0 {
		return 0
	}
	return o.StartTime + o.Duration
}

// QuestionList is a group of questions presented one at a time, starting
// at StartTime of the owning media item's play time. TimeLimit is the
// default per-question limit in milliseconds; 0 means unlimited.
type QuestionList struct {
	StartTime int         `yaml:"startTime"`
	TimeLimit int         `yaml:"timeLimit"`
	Questions []*Question `yaml:"questions"`
}

// Question is a single scored question. A correct answer applies the
// question's variable modifiers; a wrong or timed-out answer applies none.
type Question struct {
	Text      string             `yaml:"text"`
	Answer    string             `yaml:"answer"`
	TimeLimit int                `yaml:"timeLimit"`
	Options   []string           `yaml:"options"`
	Modifiers []VariableModifier `yaml:"score"`
}

// Limit returns the question's effective time limit given the owning
// list's default.
func (q *Question) Limit(listDefault int) int {
	if q.TimeLimit != 0 {
		return q.TimeLimit
	}
	return listDefault
}

// LeadsTo names a branch target, optionally gated by a condition
// expression containing {{variable}} placeholders.
type LeadsTo struct {
	Subject   string `yaml:"subject"`
	Condition string `yaml:"condition"`
}

// Variable modifier operations.
const (
	OpSet      = "set"
	OpAdd      = "add"
	OpSubtract = "subtract"
	OpMultiply = "multiply"
	OpDivide   = "divide"
	OpPower    = "power"
)

// VariableModifier applies one operation to one variable.
type VariableModifier struct {
	ID        string      `yaml:"id"`
	Operation string      `yaml:"operation"`
	Value     interface{} `yaml:"value"`
}

// Subject returns the subject with the given ID, or nil.
func (p *Playlist) Subject(id string) *Subject {
	return p.subjectsByID[id]
}
