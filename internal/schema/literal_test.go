package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvalLiteral(t *testing.T) {
	tests := []struct {
		expr string
		want any
	}{
		{"None", nil},
		{"", nil},
		{"True", true},
		{"False", false},
		{`"hello"`, "hello"},
		{`'it\'s'`, "it's"},
		{`"""block"""`, "block"},
		{"42", 42},
		{"-7", -7},
		{"0.5", 0.5},
		{"1e3", 1000.0},
		{"[]", "[]"},
		{"{}", "{}"},
		{"(1, 2)", "[1, 2]"},
		{`{'a': 1, "b": [True, None]}`, `{"a": 1, "b": [true, null]}`},
		{"{1, 2}", "{1, 2}"},
		{`Field("x", description="d")`, "x"},
		{"Field(default=3)", 3},
		{"Field(description='d', default=None)", nil},
		{"Field(default_factory=list)", "[]"},
		{"field(default_factory=dict)", "{}"},
		{"Field(default_factory=make_things)", nil},
		{"SomeEnum.VALUE", "SomeEnum.VALUE"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, EvalLiteral(tt.expr))
		})
	}
}

func TestFindAssign(t *testing.T) {
	assert.Equal(t, 7, findAssign("a: int = 3"))
	assert.Equal(t, -1, findAssign("x == y"))
	assert.Equal(t, -1, findAssign(`Dict[str, "a=b"]`))
	assert.Equal(t, 12, findAssign("f(k=1) if y = 2"))
	assert.Equal(t, -1, findAssign("n := 4"))
}
