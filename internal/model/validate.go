package model

import "fmt"

// Finding is a single validation problem. Findings are advisory: playback
// degrades gracefully on a bad reference, but authors want to know.
type Finding struct {
	Subject string
	Message string
}

func (f Finding) String() string {
	if f.Subject == "" {
		return f.Message
	}
	return fmt.Sprintf("subject %s: %s", f.Subject, f.Message)
}

// Validate checks cross-references and value ranges the parser does not
// enforce: dangling leadsTo subject ids, negative start times, unknown
// variable operations, questions without an answer.
func Validate(p *Playlist) []Finding {
	var findings []Finding

	report := func(subject, format string, args ...interface{}) {
		findings = append(findings, Finding{Subject: subject, Message: fmt.Sprintf(format, args...)})
	}

	if p.FirstSubject != "" && p.Subject(p.FirstSubject) == nil {
		report("", "firstSubject %q does not exist", p.FirstSubject)
	}

	checkModifiers := func(subject, where string, mods []VariableModifier) {
		for _, m := range mods {
			switch m.Operation {
			case OpSet, OpAdd, OpSubtract, OpMultiply, OpDivide, OpPower, "":
			default:
				report(subject, "%s: unknown variable operation %q", where, m.Operation)
			}
			if m.ID == "" {
				report(subject, "%s: variable modifier without id", where)
			}
		}
	}

	checkLeadsTo := func(subject, where string, rules []LeadsTo) {
		for _, rule := range rules {
			if rule.Subject == "" {
				report(subject, "%s: leadsTo without target", where)
				continue
			}
			if rule.Subject == BackTarget || isFrameTarget(rule.Subject) {
				continue
			}
			if p.Subject(rule.Subject) == nil {
				report(subject, "%s: leadsTo target %q does not exist", where, rule.Subject)
			}
		}
	}

	checkModifiers("", "init", p.Init)

	for _, s := range p.Subjects {
		checkLeadsTo(s.ID, "subject", s.LeadsTo)
		checkModifiers(s.ID, "subject", s.Modifiers)
		for dir, rule := range s.Swipe {
			checkLeadsTo(s.ID, "swipe "+dir, []LeadsTo{rule})
		}

		validateItems(s.ID, s.Sequence.Items, report, checkLeadsTo, checkModifiers)
	}

	return findings
}

func validateItems(
	subject string,
	items []SequenceItem,
	report func(subject, format string, args ...interface{}),
	checkLeadsTo func(subject, where string, rules []LeadsTo),
	checkModifiers func(subject, where string, mods []VariableModifier),
) {
	for _, item := range items {
		if item.Parallel != nil {
			validateItems(subject, item.Parallel.Items, report, checkLeadsTo, checkModifiers)
			continue
		}
		m := item.Media
		if m == nil {
			report(subject, "sequence item with neither media nor parallel")
			continue
		}
		where := fmt.Sprintf("media #%d (%s)", m.ID, m.Kind)
		if m.Kind == "" {
			report(subject, "%s: missing media type", where)
		}
		if m.Duration < 0 {
			report(subject, "%s: negative duration", where)
		}
		checkLeadsTo(subject, where, m.LeadsTo)
		checkModifiers(subject, where, m.Modifiers)

		for i, o := range m.Overlays {
			ow := fmt.Sprintf("%s overlay %d", where, i)
			if o.StartTime < 0 {
				report(subject, "%s: negative startTime", ow)
			}
			if o.Duration < 0 {
				report(subject, "%s: negative duration", ow)
			}
			checkLeadsTo(subject, ow, o.LeadsTo)
			checkModifiers(subject, ow, o.Modifiers)
		}

		for i, ql := range m.Questions {
			qw := fmt.Sprintf("%s question list %d", where, i)
			if ql.StartTime < 0 {
				report(subject, "%s: negative startTime", qw)
			}
			for j, q := range ql.Questions {
				if q.Answer == "" {
					report(subject, "%s question %d: empty answer", qw, j)
				}
				checkModifiers(subject, fmt.Sprintf("%s question %d", qw, j), q.Modifiers)
			}
		}
	}
}
