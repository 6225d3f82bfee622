// Package activity defines the closed set of activity types that presence
// broadcasts, buddy matches, waves and crew chats are tagged with.
//
// Every lookup over Type is written as a switch listing each member, so adding
// a member is caught by the exhaustive linter and by the coverage test over All.
package activity

import (
	"fmt"
	"strings"
)

// Type identifies an in-person activity.
type Type uint8

const (
	// Unknown is the zero value and never valid on a persisted record.
	Unknown Type = iota
	Run
	Walk
	Coffee
	Food
	Drinks
	BoardGames
	Study
	Sport
)

// All returns every valid activity type in display order.
func All() []Type {
	return []Type{Run, Walk, Coffee, Food, Drinks, BoardGames, Study, Sport}
}

// Code returns the stable storage and wire code.
func (t Type) Code() string {
	switch t {
	case Run:
		return "RUN"
	case Walk:
		return "WALK"
	case Coffee:
		return "COFFEE"
	case Food:
		return "FOOD"
	case Drinks:
		return "DRINKS"
	case BoardGames:
		return "BOARD_GAMES"
	case Study:
		return "STUDY"
	case Sport:
		return "SPORT"
	case Unknown:
		return ""
	}
	return ""
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if code := t.Code(); code != "" {
		return code
	}
	return fmt.Sprintf("activity.Type(%d)", uint8(t))
}

// MarshalText encodes t as its code, so JSON payloads carry "RUN" rather than a number.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.Code()), nil
}

// UnmarshalText decodes a code produced by MarshalText.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Valid reports whether t is a member of the enumeration other than Unknown.
func (t Type) Valid() bool {
	return t.Code() != ""
}

// Label returns the human readable name.
func (t Type) Label() string {
	switch t {
	case Run:
		return "Running"
	case Walk:
		return "Walking"
	case Coffee:
		return "Coffee"
	case Food:
		return "Grabbing food"
	case Drinks:
		return "Drinks"
	case BoardGames:
		return "Board games"
	case Study:
		return "Study session"
	case Sport:
		return "Pickup sports"
	case Unknown:
		return ""
	}
	return ""
}

// Icon returns the emoji shown next to the activity.
func (t Type) Icon() string {
	switch t {
	case Run:
		return "🏃"
	case Walk:
		return "🚶"
	case Coffee:
		return "☕"
	case Food:
		return "🍜"
	case Drinks:
		return "🍻"
	case BoardGames:
		return "🎲"
	case Study:
		return "📚"
	case Sport:
		return "⚽"
	case Unknown:
		return ""
	}
	return ""
}

// SuggestedPrompts returns conversation starters offered when a chat opens.
func (t Type) SuggestedPrompts() []string {
	switch t {
	case Run:
		return []string{"What pace are you comfortable with?", "Loop or out-and-back?"}
	case Walk:
		return []string{"Any favourite route around here?", "Park or city streets?"}
	case Coffee:
		return []string{"Which café should we meet at?", "Espresso or filter?"}
	case Food:
		return []string{"Any cravings?", "Dietary restrictions we should know about?"}
	case Drinks:
		return []string{"Quiet bar or somewhere lively?", "What time works for everyone?"}
	case BoardGames:
		return []string{"Who is bringing games?", "Strategy or party games?"}
	case Study:
		return []string{"What are you working on?", "Library or café?"}
	case Sport:
		return []string{"Which sport?", "Does anyone have a ball?"}
	case Unknown:
		return nil
	}
	return nil
}

// Parse resolves a code (case insensitive) into a Type.
func Parse(code string) (Type, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	for _, t := range All() {
		if t.Code() == normalized {
			return t, nil
		}
	}
	return Unknown, fmt.Errorf("activity: unknown type %q", code)
}

// MustParse is Parse for values read back from storage that were validated on write.
func MustParse(code string) Type {
	t, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return t
}
