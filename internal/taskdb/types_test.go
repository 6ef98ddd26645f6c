package taskdb

import "testing"

func TestRunnable(t *testing.T) {
	byID := map[string]Task{
		"dep-done": {ID: "dep-done", Status: StatusDone, Type: TypeImplementation},
		"dep-todo": {ID: "dep-todo", Status: StatusTodo, Type: TypeImplementation},
		"dep-invalid": {ID: "dep-invalid", Status: StatusInvalid, Type: TypeImplementation},
	}

	cases := []struct {
		name string
		task Task
		want bool
	}{
		{
			name: "implementation todo with no deps is runnable",
			task: Task{ID: "a", Type: TypeImplementation, Status: StatusTodo},
			want: true,
		},
		{
			name: "task-type alias is runnable",
			task: Task{ID: "b", Type: TypeTask, Status: StatusInProgress},
			want: true,
		},
		{
			name: "theme is never runnable",
			task: Task{ID: "c", Type: TypeTheme, Status: StatusTodo},
			want: false,
		},
		{
			name: "done implementation is not runnable",
			task: Task{ID: "d", Type: TypeImplementation, Status: StatusDone},
			want: false,
		},
		{
			name: "blocked on an incomplete dependency",
			task: Task{ID: "e", Type: TypeImplementation, Status: StatusTodo, DependencyIDs: []string{"dep-todo"}},
			want: false,
		},
		{
			name: "unblocked once the dependency is done",
			task: Task{ID: "f", Type: TypeImplementation, Status: StatusTodo, DependencyIDs: []string{"dep-done"}},
			want: true,
		},
		{
			name: "invalid dependency no longer blocks",
			task: Task{ID: "g", Type: TypeImplementation, Status: StatusTodo, DependencyIDs: []string{"dep-invalid"}},
			want: true,
		},
		{
			name: "missing dependency record blocks",
			task: Task{ID: "h", Type: TypeImplementation, Status: StatusTodo, DependencyIDs: []string{"ghost"}},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Runnable(tc.task, byID); got != tc.want {
				t.Errorf("Runnable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPriorityLess(t *testing.T) {
	if !PriorityHigh.Less(PriorityMedium) {
		t.Error("high should sort before medium")
	}
	if !PriorityMedium.Less(PriorityLow) {
		t.Error("medium should sort before low")
	}
	if Priority("").Less(PriorityLow) {
		t.Error("unspecified priority should sort last, not before low")
	}
}

func TestDescriptionIncomplete(t *testing.T) {
	cases := map[string]bool{
		"":                        true,
		"   ":                     true,
		"TBD":                     true,
		"  todo  ":                true,
		"N/A":                     true,
		"Implement the JWT refresh middleware with a 5-minute leeway window": false,
	}
	for input, want := range cases {
		if got := DescriptionIncomplete(input); got != want {
			t.Errorf("DescriptionIncomplete(%q) = %v, want %v", input, got, want)
		}
	}
}
