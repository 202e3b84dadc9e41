package nodetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnakeCase(t *testing.T) {
	for in, want := range map[string]string{
		"Backend":        "backend",
		"RetryPolicy":    "retry_policy",
		"HTTPServer":     "http_server",
		"Route53Record":  "route53_record",
		"already_snake":  "already_snake",
		"camelCaseThing": "camel_case_thing",
	} {
		assert.Equal(t, want, SnakeCase(in), in)
	}
}

func TestPascalCase(t *testing.T) {
	assert.Equal(t, "RetryPolicy", PascalCase("retry_policy"))
	assert.Equal(t, "LlmAgent", PascalCase("llm-agent"))
	assert.Equal(t, "Backend", PascalCase("backend"))
}

func TestPluralize(t *testing.T) {
	for in, want := range map[string]string{
		"policy": "policies",
		"day":    "days",
		"box":    "boxes",
		"match":  "matches",
		"mesh":   "meshes",
		"route":  "routes",
		"":       "",
	} {
		assert.Equal(t, want, Pluralize(in), in)
	}
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "retry_policies", CollectionName("RetryPolicy"))
	assert.Equal(t, "agents", CollectionName("AgentConfig"))
	assert.Equal(t, "backends", CollectionName("svc.Backend"))
	assert.Equal(t, "configs", CollectionName("Config"))
}
