package sink

import "LighthouseIS/internal/model"

// Multi fans one entry out to several sinks in order. The first error wins;
// later sinks still receive the entry so one failing target cannot starve
// the others.
type Multi []model.Sink

func (m Multi) Append(e model.LogEntry) error {
	var first error
	for _, s := range m {
		if err := s.Append(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
