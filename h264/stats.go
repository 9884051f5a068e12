package h264

import (
	"fmt"
	"strings"
)

// FrameTypeStats counts pictures by type. Counts built from chunks never
// hold B pictures since the NALU type does not tell them apart from P; a
// decoder does.
type FrameTypeStats struct {
	I       int `json:"I"`
	P       int `json:"P"`
	B       int `json:"B"`
	Unknown int `json:"?"`
}

func (s *FrameTypeStats) Add(t PictureType) {
	switch t {
	case PictureI:
		s.I++
	case PictureP:
		s.P++
	case PictureB:
		s.B++
	default:
		s.Unknown++
	}
}

func (s *FrameTypeStats) AddChunks(chunks []Chunk) {
	for _, c := range chunks {
		s.Add(c.InferredType)
	}
}

func (s FrameTypeStats) Total() int {
	return s.I + s.P + s.B + s.Unknown
}

// String renders the share of each known type, e.g. "I:10.0% P:90.0%".
// Unknown pictures count towards the total but are not listed; "-" is
// returned when nothing known was counted.
func (s FrameTypeStats) String() string {
	total := s.Total()
	if total == 0 {
		return "-"
	}

	var parts []string
	for _, e := range []struct {
		name  string
		count int
	}{{"I", s.I}, {"P", s.P}, {"B", s.B}} {
		if e.count == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%.1f%%", e.name, float64(e.count)*100/float64(total)))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
