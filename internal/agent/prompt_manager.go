package agent

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// PromptManager resolves prompt templates. Every template ships as a
// built-in default; dropping a <name>.md file into Directory overrides it.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

// template names accepted as <name>.md overrides
const (
	promptPlanner      = "planner"
	promptExecutor     = "executor"
	promptController   = "controller"
	promptAutoPlanner  = "auto_planner"
	promptAutoExecutor = "auto_executor"
	promptReflection   = "reflection"
)

func (pm *PromptManager) PlannerPrompt() string {
	return pm.resolve(promptPlanner, defaultPlannerPrompt)
}

func (pm *PromptManager) ExecutorPrompt() string {
	return pm.resolve(promptExecutor, defaultExecutorPrompt)
}

func (pm *PromptManager) ControllerPrompt() string {
	return pm.resolve(promptController, defaultControllerPrompt)
}

func (pm *PromptManager) AutoPlannerPrompt() string {
	return pm.resolve(promptAutoPlanner, defaultAutoPlannerPrompt)
}

func (pm *PromptManager) AutoExecutorPrompt() string {
	return pm.resolve(promptAutoExecutor, defaultAutoExecutorPrompt)
}

func (pm *PromptManager) ReflectionPrompt() string {
	return pm.resolve(promptReflection, defaultReflectionPrompt)
}

func (pm *PromptManager) resolve(name, fallback string) string {
	if pm == nil || pm.Directory == "" {
		return fallback
	}
	path := filepath.Join(pm.Directory, name+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: failed to read prompt override %s: %v", path, err)
		}
		return fallback
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return fallback
	}
	return text
}
