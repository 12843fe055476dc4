package service

// DefaultProjectType is assumed when the input names no project type.
const DefaultProjectType = "web-app"

// activationMatrix restricts eligible agents by project type and phase.
// Phases not listed for a type activate no matrixed agents at all.
var activationMatrix = map[string]map[string][]string{
	"web-app": {
		"architecture_design": {
			"fullstack_architect", "backend_architect", "frontend_architect",
			"database_architect", "infrastructure_architect", "security_architect",
		},
		"code_generation": {
			"fullstack_developer", "backend_developer", "frontend_developer",
		},
	},
	"api": {
		"architecture_design": {
			"backend_architect", "database_architect",
			"infrastructure_architect", "security_architect",
		},
		"code_generation": {
			"backend_developer",
		},
	},
	"ml-project": {
		"architecture_design": {
			"fullstack_architect", "backend_architect", "database_architect",
			"infrastructure_architect", "ml_architect",
		},
		"code_generation": {
			"backend_developer", "aiml_developer",
		},
	},
	"ai-app": {
		"architecture_design": {
			"fullstack_architect", "backend_architect", "frontend_architect",
			"database_architect", "infrastructure_architect",
			"security_architect", "ai_architect",
		},
		"code_generation": {
			"fullstack_developer", "aiml_developer",
		},
	},
	"full-platform": {
		"architecture_design": {
			"fullstack_architect", "backend_architect", "frontend_architect",
			"database_architect", "infrastructure_architect",
			"security_architect", "ml_architect", "ai_architect",
		},
		"code_generation": {
			"fullstack_developer", "backend_developer",
			"frontend_developer", "aiml_developer",
		},
	},
}

// ResolveProjectType picks the effective project type from the input data:
// project_type, then project_type_hint, then the web-app default. Empty
// strings fall through.
func ResolveProjectType(inputData map[string]interface{}) string {
	if t := stringField(inputData, "project_type"); t != "" {
		return t
	}
	if t := stringField(inputData, "project_type_hint"); t != "" {
		return t
	}
	return DefaultProjectType
}

// FilterByMatrix returns the subset of agents the activation matrix allows
// for the project type and phase, preserving the input ordering. Unknown
// project types use the web-app row.
func FilterByMatrix(agents []string, projectType, phaseName string) []string {
	row, ok := activationMatrix[projectType]
	if !ok {
		row = activationMatrix[DefaultProjectType]
	}

	allowed := make(map[string]bool)
	for _, id := range row[phaseName] {
		allowed[id] = true
	}

	activated := make([]string, 0, len(agents))
	for _, id := range agents {
		if allowed[id] {
			activated = append(activated, id)
		}
	}
	return activated
}

// ProjectTypes returns the project types the activation matrix knows.
func ProjectTypes() []string {
	return []string{"web-app", "api", "ml-project", "ai-app", "full-platform"}
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
