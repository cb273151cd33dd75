package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterIfNew(t *testing.T) {
	r := New()
	k := ExceptionKey{ClassName: "Foo", MethodName: "bar", ExceptionType: "NullPointerException"}

	assert.True(t, r.RegisterIfNew(k))
	assert.True(t, r.Seen(k))
	assert.False(t, r.RegisterIfNew(k), "second registration of the same key is not new")
}

func TestNewFromSeed(t *testing.T) {
	k := ExceptionKey{ClassName: "Foo", MethodName: "bar", ExceptionType: "IOException"}
	r := NewFromSeed([]ExceptionKey{k})

	assert.True(t, r.Seen(k))
	assert.False(t, r.RegisterIfNew(k), "seeded keys count as already seen")
}

func TestDrain(t *testing.T) {
	r := New()
	k1 := ExceptionKey{ClassName: "A", MethodName: "m", ExceptionType: "E1"}
	k2 := ExceptionKey{ClassName: "B", MethodName: "n", ExceptionType: "E2"}
	r.RegisterIfNew(k1)
	r.RegisterIfNew(k2)

	assert.ElementsMatch(t, []ExceptionKey{k1, k2}, r.Drain())
}
