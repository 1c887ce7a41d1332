package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"fingergate/internal/config"
)

// Requirement defines an external executable fingergate relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Resolved    string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// EngineRequirements lists the vendor executables named by cfg. The enroll
// capture binary is only listed when it differs from the identify one.
func EngineRequirements(cfg *config.Config) []Requirement {
	requirements := []Requirement{
		{
			Name:        "Capture engine",
			Command:     cfg.Engine.CaptureBinary,
			Description: "Captures a probe template for identification",
		},
	}
	if enroll := strings.TrimSpace(cfg.Engine.EnrollBinary); enroll != "" && enroll != strings.TrimSpace(cfg.Engine.CaptureBinary) {
		requirements = append(requirements, Requirement{
			Name:        "Enroll engine",
			Command:     enroll,
			Description: "Captures a template for enrollment",
		})
	}
	requirements = append(requirements, Requirement{
		Name:        "Comparator",
		Command:     cfg.Engine.CompareBinary,
		Description: "Scores a probe against one enrolled template",
	})
	return requirements
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Resolved = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
