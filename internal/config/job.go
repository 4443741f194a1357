package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/brandtrack-cli/internal/model"
	"github.com/sells-group/brandtrack-cli/internal/platform"
)

// Bounds enforced at job-file load.
const (
	MaxCompetitors = 5
	MaxPrompts     = 25
)

// LoadJob reads and validates a tracking job from a YAML file.
func LoadJob(path string) (*model.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "config: read job file")
	}

	var job model.Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, eris.Wrap(err, "config: parse job file")
	}
	if err := ValidateJob(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ValidateJob normalizes and checks a job in place.
func ValidateJob(job *model.Job) error {
	job.Category = strings.TrimSpace(job.Category)
	job.MyBrand = strings.TrimSpace(job.MyBrand)
	if job.MyBrand == "" {
		return eris.New("config: job requires my_brand")
	}

	competitors := job.Competitors[:0]
	for _, c := range job.Competitors {
		c = strings.TrimSpace(c)
		if c == "" || strings.EqualFold(c, job.MyBrand) {
			continue
		}
		competitors = append(competitors, c)
	}
	job.Competitors = competitors
	if len(job.Competitors) > MaxCompetitors {
		return eris.Errorf("config: at most %d competitors, got %d", MaxCompetitors, len(job.Competitors))
	}

	if len(job.Platforms) == 0 {
		job.Platforms = platform.Supported()
	}
	seen := make(map[string]bool, len(job.Platforms))
	platforms := job.Platforms[:0]
	for _, p := range job.Platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if !platform.IsSupported(p) {
			return eris.Errorf("config: unsupported platform %q (supported: %s)", p, strings.Join(platform.Supported(), ", "))
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		platforms = append(platforms, p)
	}
	job.Platforms = platforms

	prompts := job.Prompts[:0]
	for _, p := range job.Prompts {
		if p = strings.TrimSpace(p); p != "" {
			prompts = append(prompts, p)
		}
	}
	job.Prompts = prompts

	if job.GeneratePrompts < 0 {
		job.GeneratePrompts = 0
	}
	if job.GeneratePrompts > 0 && job.Category == "" {
		return eris.New("config: generate_prompts requires a category")
	}
	if len(job.Prompts) == 0 && job.GeneratePrompts == 0 {
		return eris.New("config: job requires at least one prompt")
	}
	// Generated prompts count against the same ceiling as listed ones.
	if total := len(job.Prompts) + job.GeneratePrompts; total > MaxPrompts {
		return eris.Errorf("config: at most %d prompts, got %d", MaxPrompts, total)
	}

	return nil
}
