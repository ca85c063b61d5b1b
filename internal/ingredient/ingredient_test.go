package ingredient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Bell Peppers", "bell pepper"},
		{"capsicum", "bell pepper"},
		{"Bell pepper, diced", "bell pepper"},
		{"Extra Virgin Olive Oil", "olive oil"},
		{"Fresh Spinach (baby)", "spinach"},
		{"Rolled Oats", "oat"},
		{"Eggs", "egg"},
		{"Cherry Tomatoes", "cherry tomato"},
		{"hummus", "hummus"},
		{"Asparagus", "asparagus"},
		{"Boneless skinless chicken thighs", "chicken thigh"},
		{"Greek-style yogurt", "greek yogurt"},
		{"Mixed Berries", "mixed berry"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.raw))
		})
	}
}

func TestHead(t *testing.T) {
	tests := []struct {
		canonical string
		head      string
		noun      string
	}{
		{"tuna in olive oil", "tuna", "tuna"},
		{"chicken in soy sauce", "chicken", "chicken"},
		{"salmon fillet with herb", "salmon fillet", "fillet"},
		{"oat milk", "oat milk", "milk"},
		{"in season fruit", "in season fruit", "fruit"},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.canonical, func(t *testing.T) {
			assert.Equal(t, tt.head, Head(tt.canonical))
			assert.Equal(t, tt.noun, HeadNoun(tt.canonical))
		})
	}
	assert.Equal(t, "tuna in olive oil", Canonical("Canned tuna in olive oil"))
}

func TestID(t *testing.T) {
	assert.Equal(t, "ing_bell_pepper", ID(Canonical("Bell Peppers")))
}

func TestMentions(t *testing.T) {
	assert.True(t, Mentions("Bell Peppers", "bell peppers"))
	assert.True(t, Mentions("Stuffed bell pepper", "bell peppers"))
	assert.True(t, Mentions("roasted capsicum salad", "bell pepper"))
	assert.True(t, Mentions("Peanut Butter Toast", "PEANUT"))
	assert.False(t, Mentions("Salmon with rice", "bell peppers"))
	assert.False(t, Mentions("anything", "  "))
}

func TestNormalize(t *testing.T) {
	q, ok := Normalize(1.5, "kg")
	assert.True(t, ok)
	assert.Equal(t, Quantity{1500, Gram}, q)

	q, ok = Normalize(2, "Tbsp.")
	assert.True(t, ok)
	assert.Equal(t, Quantity{30, Millilitre}, q)

	q, ok = Normalize(3, "whole")
	assert.True(t, ok)
	assert.Equal(t, Quantity{3, Count}, q)

	q, ok = Normalize(2, "handfuls of")
	assert.False(t, ok)
	assert.Equal(t, Count, q.Unit)
}

func TestConvert(t *testing.T) {
	out, exact, _ := Convert(Quantity{100, Gram}, Gram, "rice")
	assert.True(t, exact)
	assert.Equal(t, 100.0, out.Amount)

	out, exact, note := Convert(Quantity{2, Count}, Gram, "egg")
	assert.False(t, exact)
	assert.Equal(t, 100.0, out.Amount)
	assert.NotEmpty(t, note)

	out, _, _ = Convert(Quantity{91, Gram}, Millilitre, "olive oil")
	assert.InDelta(t, 100.0, out.Amount, 1e-9)

	out, _, _ = Convert(Quantity{250, Gram}, Count, "mystery root")
	assert.InDelta(t, 2.5, out.Amount, 1e-9)
}
