package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Range is an inclusive [lo, hi] band written as a two-element sequence.
type Range struct {
	Lo, Hi float64
}

func (r Range) String() string {
	return fmt.Sprintf("[%v, %v]", r.Lo, r.Hi)
}

// UnmarshalYAML decodes a [lo, hi] pair.
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	var pair []float64
	if err := node.Decode(&pair); err != nil {
		return fmt.Errorf("line %d: range must be [lo, hi]: %w", node.Line, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("line %d: range must have 2 values, got %d", node.Line, len(pair))
	}
	r.Lo, r.Hi = pair[0], pair[1]
	return nil
}

// RangeList is one or more ranges. A single [lo, hi] pair is accepted as a
// list of one.
type RangeList []Range

// UnmarshalYAML decodes either [lo, hi] or [[lo, hi], ...].
func (l *RangeList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: expected a range or a list of ranges", node.Line)
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.ScalarNode {
		var r Range
		if err := node.Decode(&r); err != nil {
			return err
		}
		*l = RangeList{r}
		return nil
	}
	var rs []Range
	if err := node.Decode(&rs); err != nil {
		return err
	}
	*l = rs
	return nil
}
