package main

import "strings"

// sliceFlag collects the values of a repeatable command line option.
// A single value may also list several items, separated by commas.
type sliceFlag struct {
	values *[]string
}

func newSliceFlag(values *[]string) *sliceFlag {
	return &sliceFlag{values}
}

func (s *sliceFlag) String() string {
	if s.values == nil {
		return ""
	}
	return strings.Join(*s.values, ", ")
}

func (s *sliceFlag) Set(str string) error {
	for _, item := range strings.Split(str, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*s.values = append(*s.values, item)
		}
	}
	return nil
}

func (s *sliceFlag) Type() string {
	return "criterion"
}
