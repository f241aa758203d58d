package convert

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

// TestTimestamp tests epoch conversion.
func TestTimestamp(t *testing.T) {
	t.Parallel()

	t.Run("float epoch", func(t *testing.T) {
		t.Parallel()

		ts, err := Timestamp(1441193001.0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2015, 9, 2, 11, 23, 21, 0, time.UTC)
		if !ts.Equal(want) {
			t.Errorf("got %v, expected %v", ts.Time, want)
		}
		if ts.Epoch() != 1441193001.0 {
			t.Errorf("round trip returned %v", ts.Epoch())
		}
	})

	t.Run("integer epoch", func(t *testing.T) {
		t.Parallel()

		ts, err := Timestamp(1441193047)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ts.Epoch() != 1441193047.0 {
			t.Errorf("got %v", ts.Epoch())
		}
	})

	t.Run("numeric string", func(t *testing.T) {
		t.Parallel()

		ts, err := Timestamp("1441193047.5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ts.Epoch() != 1441193047.5 {
			t.Errorf("got %v", ts.Epoch())
		}
	})

	t.Run("yaml timestamp", func(t *testing.T) {
		t.Parallel()

		in := time.Date(2015, 9, 2, 11, 23, 21, 0, time.UTC)
		ts, err := Timestamp(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ts.Epoch() != 1441193001.0 {
			t.Errorf("got %v", ts.Epoch())
		}
	})

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()

		ts, err := Timestamp(nil)
		if err != nil || ts != nil {
			t.Errorf("expected nil, nil; got %v, %v", ts, err)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		t.Parallel()

		for _, v := range []any{"yesterday", true, []any{1}, math.NaN(), math.Inf(1)} {
			_, err := Timestamp(v)
			if !errors.Is(err, ErrInvalidTimestamp) {
				t.Errorf("%v: expected ErrInvalidTimestamp, got %v", v, err)
			}
		}
	})
}

// TestText tests text coercion.
func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "string passes through", in: "GET", want: "GET"},
		{name: "int status code", in: 200, want: "200"},
		{name: "float", in: 0.8, want: "0.8"},
		{name: "bool", in: false, want: "false"},
		{name: "non-utf8 bytes pass through", in: "\xff\xfe", want: "\xff\xfe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Text(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("got %q, expected %q", *got, tt.want)
			}
		})
	}

	t.Run("rejects compound values", func(t *testing.T) {
		t.Parallel()

		if _, err := Text(map[string]any{}); !errors.Is(err, ErrInvalidText) {
			t.Errorf("expected ErrInvalidText, got %v", err)
		}
	})
}

// TestBool tests boolean coercion.
func TestBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{1, true},
		{0, false},
		{"True", true},
		{"no", false},
	}

	for _, tt := range tests {
		got, err := Bool(tt.in)
		if err != nil {
			t.Errorf("%v: unexpected error: %v", tt.in, err)
			continue
		}
		if *got != tt.want {
			t.Errorf("%v: got %v, expected %v", tt.in, *got, tt.want)
		}
	}

	for _, bad := range []any{"maybe", 2, 0.5} {
		if _, err := Bool(bad); !errors.Is(err, ErrInvalidBool) {
			t.Errorf("%v: expected ErrInvalidBool, got %v", bad, err)
		}
	}
}

// TestFloat tests number coercion.
func TestFloat(t *testing.T) {
	t.Parallel()

	for in, want := range map[any]float64{0.8: 0.8, 3: 3, "0.25": 0.25} {
		got, err := Float(in)
		if err != nil {
			t.Errorf("%v: unexpected error: %v", in, err)
			continue
		}
		if *got != want {
			t.Errorf("%v: got %v, expected %v", in, *got, want)
		}
	}

	if _, err := Float(true); !errors.Is(err, ErrInvalidFloat) {
		t.Errorf("expected ErrInvalidFloat for bool, got %v", err)
	}
	for _, in := range []any{math.NaN(), math.Inf(1), math.Inf(-1), "NaN", "+Inf"} {
		if got, err := Float(in); !errors.Is(err, ErrInvalidFloat) {
			t.Errorf("%v: expected ErrInvalidFloat, got %v, %v", in, got, err)
		}
	}
	if got, err := Float(nil); got != nil || err != nil {
		t.Errorf("expected nil, nil; got %v, %v", got, err)
	}
}

// TestTextList tests list coercion.
func TestTextList(t *testing.T) {
	t.Parallel()

	got, err := TextList([]any{"-f", "citizenlab-urls-global.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"-f", "citizenlab-urls-global.txt"}) {
		t.Errorf("got %v", got)
	}

	if _, err := TextList("not a list"); !errors.Is(err, ErrInvalidList) {
		t.Errorf("expected ErrInvalidList, got %v", err)
	}
	if _, err := TextList([]any{"a", nil}); !errors.Is(err, ErrInvalidText) {
		t.Errorf("expected ErrInvalidText for null item, got %v", err)
	}
}

// TestTextMap tests mapping coercion.
func TestTextMap(t *testing.T) {
	t.Parallel()

	got, err := TextMap(map[string]any{"is_tor": false, "exit_ip": nil})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{"is_tor": "false", "exit_ip": ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, expected %v", got, want)
	}

	empty, err := TextMap(map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil map, got %v", empty)
	}

	if _, err := TextMap([]any{}); !errors.Is(err, ErrInvalidMapping) {
		t.Errorf("expected ErrInvalidMapping, got %v", err)
	}
}
