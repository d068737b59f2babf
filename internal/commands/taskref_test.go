package commands

import (
	"testing"

	"taskman/internal/service"
)

func TestParseTaskRef_Numeric(t *testing.T) {
	num, err := ParseTaskRef([]string{"5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != 5 {
		t.Errorf("expected 5, got %d", num)
	}
}

func TestParseTaskRef_Errors(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{args: nil, want: "task reference required"},
		{args: []string{"a1"}, want: "invalid task reference: a1"},
		{args: []string{"-1"}, want: "invalid task reference: -1"},
		{args: []string{"0"}, want: "task number out of range: 0"},
		{args: []string{"1", "2"}, want: "unexpected argument: 2"},
		{args: []string{"١"}, want: "invalid task reference: ١"},
	}
	for _, tt := range tests {
		_, err := ParseTaskRef(tt.args)
		if err == nil {
			t.Errorf("ParseTaskRef(%q): expected error", tt.args)
			continue
		}
		if err.Error() != tt.want {
			t.Errorf("ParseTaskRef(%q) = %q, want %q", tt.args, err.Error(), tt.want)
		}
	}
}

func TestTaskAt(t *testing.T) {
	tasks := []service.Task{{ID: "a"}, {ID: "b"}}

	got, err := taskAt(tasks, 2)
	if err != nil || got.ID != "b" {
		t.Errorf("taskAt(2) = %+v, %v", got, err)
	}
	if _, err := taskAt(tasks, 3); err == nil || err.Error() != "task number out of range: 3" {
		t.Errorf("taskAt(3) err = %v", err)
	}
}
