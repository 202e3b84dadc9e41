package typeexpr

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestCompatible(t *testing.T) {
	tests := []struct {
		producer, consumer string
		want               bool
	}{
		{"int", "Index", true},
		{"Index", "int", true},
		{"integer", "int", true},
		{"str", "string", true},
		{"string", "str", true},
		{"str", "Optional[str]", true},
		{"A", "Union[Index, A]", true},
		{"int", "Union[Index, A]", true},
		{"int", "str", false},
		{"Ns.Foo", "Foo", true},
		{"Foo", "Ns.Foo", true},
		{"Ns.Foo", "Optional[Foo]", true},
		{"Ns.Foo", "Union[Bar, Foo]", true},
		{"Ns.Foo", "Bar", false},
		{"Backend", "Backend | None", true},
		{"int", "str | Index", true},
		{"Anything", "Any", true},
		{"Any", "Backend", true},
		{"List[int]", "List[int]", true},
		{"List[int]", "List[str]", false},
	}
	for _, tt := range tests {
		t.Run(tt.producer+"->"+tt.consumer, func(t *testing.T) {
			assert.Equal(t, tt.want, Compatible(tt.producer, tt.consumer))
		})
	}
}

func TestCompatible_IsAsymmetricForWrappers(t *testing.T) {
	assert.True(t, Compatible("str", "Optional[str]"))
	assert.False(t, Compatible("Optional[str]", "str"))

	assert.True(t, Compatible("A", "Union[A, B]"))
	assert.False(t, Compatible("Union[A, B]", "A"))
}

func TestCompatible_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("every type feeds itself", prop.ForAll(
		func(name string) bool {
			return Compatible(name, name)
		},
		gen.Identifier(),
	))

	properties.Property("Any absorbs in both directions", prop.ForAll(
		func(name string) bool {
			return Compatible(name, AnyName) && Compatible(AnyName, name)
		},
		gen.Identifier(),
	))

	properties.Property("Optional lifts the consumer", prop.ForAll(
		func(name string) bool {
			return Compatible(name, "Optional["+name+"]")
		},
		gen.Identifier(),
	))

	properties.Property("namespaced producers feed the bare model", prop.ForAll(
		func(ns, name string) bool {
			return Compatible(ns+"."+name, name)
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
