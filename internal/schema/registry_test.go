package schema

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// readFixture reads a test fixture file relative to the project root.
// Tests run from internal/schema/, so the relative path is ../../testdata/...
func readFixture(t *testing.T, relPath string) string {
	t.Helper()
	data, err := os.ReadFile("../../" + relPath)
	require.NoError(t, err, "reading fixture %s", relPath)
	return string(data)
}

func mustParse(t *testing.T, code string, opts ...Option) *Schema {
	t.Helper()
	s, err := Parse(context.Background(), "test", code, opts...)
	require.NoError(t, err)
	return s
}

func fieldNames(m *Model) []string {
	out := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		out[i] = f.Name
	}
	return out
}

func requireModel(t *testing.T, s *Schema, name string) *Model {
	t.Helper()
	m, ok := s.Model(name)
	require.True(t, ok, "model %s should be registered", name)
	return m
}

// ---------------------------------------------------------------------------
// Fixture schema
// ---------------------------------------------------------------------------

func TestParse_AppFixture(t *testing.T) {
	s := mustParse(t, readFixture(t, "testdata/fixtures/schemas/app.py"))

	assert.Equal(t, []string{"Component", "RetryPolicy", "Backend", "Route", "App"}, s.ModelNames())
	assert.Equal(t, "App", s.Root)
	assert.Equal(t, "int", s.Aliases["Index"])
	assert.Equal(t, "30", s.Constants["DEFAULT_TIMEOUT"])

	backend := requireModel(t, s, "Backend")
	assert.Equal(t, "Component", backend.Parent)
	assert.Equal(t, []string{"type", "name", "labels", "url", "timeout", "retry", "tags"}, fieldNames(backend))

	typ, _ := backend.Field("type")
	assert.Equal(t, RoleConstant, typ.Role)
	assert.Equal(t, "backend", typ.DefaultValue())

	labels, _ := backend.Field("labels")
	assert.Equal(t, "Dict[str, str]", labels.RawType, "alias substituted before parsing")
	assert.Equal(t, "{}", labels.DefaultValue())

	timeout, _ := backend.Field("timeout")
	assert.Equal(t, RoleInput, timeout.Role)
	assert.Equal(t, 30, timeout.DefaultValue(), "constant substituted into default")

	tags, _ := backend.Field("tags")
	assert.Equal(t, "[]", tags.DefaultValue())

	route := requireModel(t, s, "Route")
	assert.Equal(t, []string{"type", "name", "labels", "path", "backend", "fallbacks", "summary", "priority"}, fieldNames(route))

	fallbacks, _ := route.Field("fallbacks")
	assert.Equal(t, RoleMultiInput, fallbacks.Role)
	assert.Equal(t, "List[Backend]", fallbacks.RawType)

	summary, _ := route.Field("summary")
	assert.Equal(t, RoleOutput, summary.Role)
	assert.True(t, summary.Property)

	priority, _ := route.Field("priority")
	assert.Equal(t, "int", priority.RawType)

	_, hidden := route.Field("hidden")
	assert.False(t, hidden, "method locals are not fields")

	retry := requireModel(t, s, "RetryPolicy")
	attempts, _ := retry.Field("attempts")
	assert.Equal(t, 5, attempts.DefaultValue())

	assert.False(t, s.HasModel("LogLevel"), "enum without annotated fields is dropped")
	assert.False(t, s.HasModel("_Internal"), "empty class is dropped")
}

func TestSchema_FieldRolesAndDefaults(t *testing.T) {
	s := mustParse(t, readFixture(t, "testdata/fixtures/schemas/app.py"))

	roles := s.FieldRoles()
	assert.Equal(t, RoleMultiInput, roles["App"]["backends"])
	assert.Equal(t, RoleInput, roles["App"]["debug"])

	defaults := s.Defaults()
	assert.Equal(t, false, defaults["App"]["debug"])
	assert.Equal(t, "app", defaults["App"]["name"])
	_, hasBackends := defaults["App"]["backends"]
	assert.False(t, hasBackends)
}

// ---------------------------------------------------------------------------
// Inheritance
// ---------------------------------------------------------------------------

func TestBuild_InheritanceOverrideKeepsPosition(t *testing.T) {
	s := mustParse(t, `
class Base(BaseModel):
    a: int = 1
    b: str = "x"
    c: float

class Child(Base):
    b: Annotated[Optional[int], FieldRole.OUTPUT] = 7
    d: bool
`)
	child := requireModel(t, s, "Child")
	assert.Equal(t, []string{"a", "b", "c", "d"}, fieldNames(child))

	b, _ := child.Field("b")
	assert.Equal(t, RoleOutput, b.Role)
	assert.Equal(t, "Optional[int]", b.RawType)
	assert.Equal(t, 7, b.DefaultValue())

	base := requireModel(t, s, "Base")
	baseB, _ := base.Field("b")
	assert.Equal(t, RoleInput, baseB.Role, "parent is not mutated by the override")
}

func TestBuild_ParentDeclaredAfterChild(t *testing.T) {
	s := mustParse(t, `
class Leaf(Middle):
    z: int

class Middle(Root0):
    y: int

class Root0(BaseModel):
    x: int
`)
	assert.Equal(t, []string{"x", "y", "z"}, fieldNames(requireModel(t, s, "Leaf")))
}

func TestBuild_InheritedOnlyClassIsKept(t *testing.T) {
	s := mustParse(t, `
class Base(BaseModel):
    a: int

class Alias(Base):
    pass
`)
	assert.Equal(t, []string{"a"}, fieldNames(requireModel(t, s, "Alias")))
}

func TestBuild_InheritanceCycleTerminates(t *testing.T) {
	s := mustParse(t, `
class A(B):
    a: int

class B(A):
    b: int
`)
	assert.True(t, s.HasModel("A"))
	assert.True(t, s.HasModel("B"))
}

func TestBuild_GenericBaseIsNotParent(t *testing.T) {
	s := mustParse(t, `
class Box(Generic[T], BaseModel):
    item: Any
`)
	box := requireModel(t, s, "Box")
	assert.Empty(t, box.Parent)
	assert.Equal(t, []string{"Generic", "BaseModel"}, box.Bases)
}

// ---------------------------------------------------------------------------
// Field rules
// ---------------------------------------------------------------------------

func TestBuild_FieldFiltering(t *testing.T) {
	s := mustParse(t, `
class M(BaseModel):
    _private: int
    counter: ClassVar[int] = 0
    visible: str

    @property
    def plain(self) -> str:
        return "no role"
`)
	assert.Equal(t, []string{"visible"}, fieldNames(requireModel(t, s, "M")))
}

func TestBuild_AliasChains(t *testing.T) {
	s := mustParse(t, `
Id = int
Ids = List[Id]
Ref: TypeAlias = "Optional[Ids]"

class M(BaseModel):
    ids: Ids
    ref: Annotated[Ref, FieldRole.MULTI_INPUT]
`)
	m := requireModel(t, s, "M")
	ids, _ := m.Field("ids")
	assert.Equal(t, "List[int]", ids.RawType)
	ref, _ := m.Field("ref")
	assert.Equal(t, RoleMultiInput, ref.Role)
	assert.Equal(t, "Optional[List[int]]", ref.Type.String())
}

func TestBuild_ExplicitRoot(t *testing.T) {
	code := `
class A(BaseModel):
    x: int

class B(parent_root):
    a: List[A]
`
	assert.Equal(t, "B", mustParse(t, code).Root)
	assert.Equal(t, "A", mustParse(t, code, WithRoot("A")).Root)
	assert.Empty(t, mustParse(t, code, WithRoot("Missing")).Root)
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{
		"FieldRole.CONSTANT":    RoleConstant,
		"FieldRole.MULTI_INPUT": RoleMultiInput,
		"multi_output":          RoleMultiOutput,
		"INPUT":                 RoleInput,
	} {
		got, ok := ParseRole(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseRole("FieldRole.SIDEWAYS")
	assert.False(t, ok)
}

func TestSchema_ModelRefs(t *testing.T) {
	s := mustParse(t, readFixture(t, "testdata/fixtures/schemas/app.py"))
	route := requireModel(t, s, "Route")
	fallbacks, _ := route.Field("fallbacks")
	assert.Equal(t, []string{"Backend"}, s.ModelRefs(fallbacks.Type))
	name, _ := route.Field("name")
	assert.Empty(t, s.ModelRefs(name.Type))
}
