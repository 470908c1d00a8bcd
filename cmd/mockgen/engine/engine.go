package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"emissions-mcp/internal/emissions"
	"emissions-mcp/internal/wellplan"

	"github.com/google/uuid"
)

type GeneratorConfig struct {
	Scenario     string // "exploration", "development" or "plug"
	Distribution string // "uniform" or "weibull"
	Seed         uint64
	Start        time.Time
	Wells        int
}

type phaseTemplate struct {
	phase    string
	mode     string
	days     float64 // median duration
	primary  float64 // t CO2 per day on the rig's primary engines
	vessels  float64 // t CO2 per day of support vessel time
	air      float64 // t CO2 per day of helicopter traffic
	improves float64 // fraction of the duration an optimised plan saves
}

var templates = map[string][]phaseTemplate{
	"exploration": {
		{"mobilisation", "transit", 2.5, 18, 22, 1.2, 0.1},
		{"top hole", "operating", 4, 32, 14, 1.5, 0.15},
		{"reservoir section", "operating", 9, 36, 12, 1.5, 0.1},
		{"logging", "operating", 3, 24, 10, 1.2, 0},
		{"plug and abandon", "operating", 5, 28, 12, 1.2, 0.2},
	},
	"development": {
		{"mobilisation", "transit", 1.5, 18, 20, 1.0, 0},
		{"batch top hole", "operating", 6, 30, 12, 1.2, 0.2},
		{"drilling", "operating", 14, 38, 10, 1.5, 0.12},
		{"completion", "operating", 8, 26, 10, 1.5, 0.1},
		{"demobilisation", "transit", 1, 18, 20, 1.0, 0},
	},
	"plug": {
		{"mobilisation", "transit", 1, 16, 18, 0.8, 0},
		{"tubing pull", "operating", 4, 24, 10, 1.0, 0.15},
		{"cement barriers", "operating", 5, 22, 8, 1.0, 0.25},
		{"wellhead removal", "operating", 2, 18, 12, 0.8, 0.1},
	},
}

// Scenarios lists the supported scenario names.
func Scenarios() []string {
	return []string{"exploration", "development", "plug"}
}

// Generate builds a valid well plan for the configured scenario.
func Generate(cfg GeneratorConfig) (*wellplan.Plan, error) {
	phases, ok := templates[cfg.Scenario]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", cfg.Scenario)
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Now()
	}
	if cfg.Wells < 1 {
		cfg.Wells = 1
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	start := cfg.Start.UTC()
	plan := &wellplan.Plan{
		ID:        uuidFrom(rng),
		Name:      fmt.Sprintf("%s campaign %s", cfg.Scenario, start.Format("2006-01")),
		StartDate: wellplan.NewDate(start.Year(), start.Month(), start.Day()),
		State:     wellplan.Planning,
	}

	order := 0
	elapsed := 0.0
	for well := range cfg.Wells {
		for _, tpl := range phases {
			if (tpl.phase == "mobilisation" && well > 0) || (tpl.phase == "demobilisation" && well < cfg.Wells-1) {
				continue
			}
			duration := round(sampleDuration(rng, cfg.Distribution, tpl.days), 2)
			season := seasonAt(start.Add(time.Duration(elapsed * float64(24*time.Hour))))
			step := wellplan.PlanStep{
				ID:       uuidFrom(rng),
				Order:    order,
				Phase:    tpl.phase,
				Mode:     tpl.mode,
				Season:   season,
				Duration: duration,
				Emissions: emissions.Bundle{
					PrimaryUnit:    round(tpl.primary*duration, 3),
					AuxiliaryUnit:  round(tpl.primary*0.08*duration, 3),
					SupportVessels: round(tpl.vessels*duration, 3),
					AirTransport:   round(tpl.air*duration, 3),
				},
			}
			if tpl.improves > 0 {
				step.ImprovedDuration = round(duration*(1-tpl.improves), 2)
			}
			plan.Steps = append(plan.Steps, step)
			order++
			elapsed += duration
		}
	}

	plan.SeasonAllocations = map[emissions.Season]emissions.Bundle{
		emissions.Winter: {Consumables: round(0.6*elapsed, 3)},
	}
	plan.PlanAllocations = &emissions.Bundle{
		Consumables:         round(1.8*elapsed, 3),
		ExternalPowerSupply: round(0.4*elapsed, 3),
	}
	plan.Initiatives = initiatives(rng, plan, start)

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

func initiatives(rng *rand.Rand, plan *wellplan.Plan, start time.Time) []wellplan.Initiative {
	deployed := wellplan.NewDate(start.Year(), start.Month(), start.Day()+3)
	shore := wellplan.Initiative{
		ID:             uuidFrom(rng),
		Name:           "Shore power",
		Type:           "power_systems",
		DeploymentDate: &deployed,
		Contributions:  map[int]float64{},
	}
	batch := wellplan.Initiative{
		ID:            uuidFrom(rng),
		Name:          "Offline activities",
		Type:          "productivity",
		Contributions: map[int]float64{},
	}
	for _, s := range plan.Steps {
		if s.Mode == "operating" {
			shore.Contributions[s.Order] = round(s.Emissions.PrimaryUnit*0.25, 3)
		}
		if s.ImprovedDuration > 0 {
			batch.Contributions[s.Order] = round(s.Emissions.Total()*(1-s.ImprovedDuration/s.Duration), 3)
		}
	}
	return []wellplan.Initiative{shore, batch}
}

// sampleDuration draws a positive duration around median days.
func sampleDuration(rng *rand.Rand, distribution string, median float64) float64 {
	var d float64
	if distribution == "weibull" {
		// Shape 2 keeps most of the mass near the median with a long right tail.
		lambda := median / math.Pow(math.Ln2, 0.5)
		d = weibullSample(rng, 2, lambda)
	} else {
		d = median * (0.8 + rng.Float64()*0.4)
	}
	return math.Max(d, 0.1)
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}

func seasonAt(t time.Time) emissions.Season {
	if m := t.Month(); m >= time.April && m <= time.September {
		return emissions.Summer
	}
	return emissions.Winter
}

func uuidFrom(rng *rand.Rand) uuid.UUID {
	var b [16]byte
	for i := range b {
		b[i] = byte(rng.Uint32())
	}
	id, _ := uuid.FromBytes(b[:])
	id[6] = (id[6] & 0x0f) | 0x40
	id[8] = (id[8] & 0x3f) | 0x80
	return id
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Save writes the plan as YAML to outDir and returns the file path.
func Save(outDir string, plan *wellplan.Plan) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}
	data, err := plan.Marshal()
	if err != nil {
		return "", err
	}
	path := filepath.Join(outDir, fmt.Sprintf("%s.yaml", plan.ID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
