package playback

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/events"
	"github.com/mverkaik/stagehand/internal/media"
	"github.com/mverkaik/stagehand/internal/model"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// QuestionManager serializes the presentation of question lists against
// the owning media player's play time. Lists become due at their start
// time, queue up FIFO, and play one question at a time; answering or
// timing out advances to the next question, then the next list.
type QuestionManager struct {
	stage media.Stage
	vars  *VariableStore
	log   zerolog.Logger

	// backlog is sorted ascending by start time, ties in declaration
	// order; nextDue scans forward and never rewinds.
	backlog []*model.QuestionList
	nextDue int

	queue []*model.QuestionList

	current   *model.QuestionList
	questionIdx int
	question  *model.Question
	deadline  time.Duration
	lastPlayTime time.Duration
}

// NewQuestionManager creates a manager rendering on stage and applying
// score modifiers to vars.
func NewQuestionManager(stage media.Stage, vars *VariableStore, log zerolog.Logger) *QuestionManager {
	return &QuestionManager{
		stage: stage,
		vars:  vars,
		log:   log.With().Str("component", "questions").Logger(),
	}
}

// Use binds the manager to a media item's question lists, discarding any
// previous state.
func (q *QuestionManager) Use(lists []*model.QuestionList) {
	q.Reset()
	q.backlog = make([]*model.QuestionList, len(lists))
	copy(q.backlog, lists)
	sort.SliceStable(q.backlog, func(i, j int) bool {
		return q.backlog[i].StartTime < q.backlog[j].StartTime
	})
}

// Reset hides any displayed question and discards all queued state.
func (q *QuestionManager) Reset() {
	if q.question != nil {
		q.stage.HideQuestion()
	}
	q.backlog = nil
	q.nextDue = 0
	q.queue = nil
	q.current = nil
	q.questionIdx = 0
	q.question = nil
	q.deadline = 0
	q.lastPlayTime = 0
}

// Update advances question state against the current play time: moves due
// lists into the queue, times out an unanswered displayed question, and
// starts the next list when none is in progress. Play time 0 means "not
// yet really playing", so nothing starts at exactly zero.
func (q *QuestionManager) Update(playTime time.Duration) {
	q.lastPlayTime = playTime

	for q.nextDue < len(q.backlog) && ms(q.backlog[q.nextDue].StartTime) <= playTime {
		q.queue = append(q.queue, q.backlog[q.nextDue])
		q.nextDue++
	}

	if q.question != nil && q.deadline > 0 && playTime >= q.deadline {
		q.timeout()
	}

	if q.current == nil && len(q.queue) > 0 && playTime > 0 {
		q.current = q.queue[0]
		q.queue = q.queue[1:]
		q.questionIdx = 0
		q.emit("questionlist.started", map[string]interface{}{
			"start_time": q.current.StartTime,
			"questions":  len(q.current.Questions),
		})
		q.showNext()
	}
}

// Answer resolves the displayed question with the given answer token. A
// correct answer applies the question's variable modifiers; an incorrect
// one applies none. Either way the manager advances.
func (q *QuestionManager) Answer(answer string) {
	if q.question == nil {
		q.log.Warn().Str("answer", answer).Msg("answer received with no question displayed")
		return
	}

	correct := answer == q.question.Answer
	question := q.question
	q.hideQuestion()
	q.emit("question.answered", map[string]interface{}{
		"question": question.Text,
		"answer":   answer,
		"correct":  correct,
	})
	if correct {
		q.vars.ApplyAll(question.Modifiers)
	}
	q.showNext()
}

// Active reports whether a question list is currently in progress.
func (q *QuestionManager) Active() bool { return q.current != nil }

// Displayed returns the question currently on screen, or nil.
func (q *QuestionManager) Displayed() *model.Question { return q.question }

func (q *QuestionManager) timeout() {
	question := q.question
	q.hideQuestion()
	q.emit("question.timeout", map[string]interface{}{
		"question": question.Text,
	})
	// No modifiers: a timed-out question counts as unanswered.
	q.showNext()
}

func (q *QuestionManager) showNext() {
	if q.current == nil {
		return
	}
	if q.questionIdx >= len(q.current.Questions) {
		q.emit("questionlist.ended", map[string]interface{}{
			"start_time": q.current.StartTime,
		})
		q.current = nil
		q.questionIdx = 0
		return
	}

	q.question = q.current.Questions[q.questionIdx]
	q.questionIdx++

	if limit := q.question.Limit(q.current.TimeLimit); limit > 0 {
		q.deadline = q.lastPlayTime + ms(limit)
	} else {
		q.deadline = 0
	}

	q.stage.ShowQuestion(q.question)
	q.emit("question.asked", map[string]interface{}{
		"question": q.question.Text,
	})
}

func (q *QuestionManager) hideQuestion() {
	q.stage.HideQuestion()
	q.question = nil
	q.deadline = 0
}

func (q *QuestionManager) emit(name string, fields map[string]interface{}) {
	if _, err := events.Emit("info", name, "", fields); err != nil {
		q.log.Error().Err(err).Str("event", name).Msg("failed to emit event")
	}
}
