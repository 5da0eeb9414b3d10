package longitudinal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"

	"longplan-core/utils"
)

// Personality is the follow-distance/jerk aggressiveness profile.
type Personality int

const (
	PersonalityAggressive Personality = iota
	PersonalityStandard
	PersonalityRelaxed
)

func (p Personality) String() string {
	switch p {
	case PersonalityAggressive:
		return "aggressive"
	case PersonalityStandard:
		return "standard"
	case PersonalityRelaxed:
		return "relaxed"
	default:
		return fmt.Sprintf("personality(%d)", int(p))
	}
}

// Default follow gaps (s) and jerk factors per personality, used when
// custom personalities are disabled.
var (
	defaultFollow = map[Personality]float64{
		PersonalityAggressive: 1.25,
		PersonalityStandard:   1.45,
		PersonalityRelaxed:    1.75,
	}
	defaultJerk = map[Personality]float64{
		PersonalityAggressive: 0.5,
		PersonalityStandard:   1.0,
		PersonalityRelaxed:    1.0,
	}
)

// PolicyConfig is one immutable snapshot of the tunable policy values.
// It is rebuilt as a whole on refresh so a cycle never observes a
// half-updated set of toggles.
type PolicyConfig struct {
	AccelerationProfile    AccelProfile
	LongitudinalTuning     bool
	AggressiveAcceleration bool
	StoppingDistanceBias   float64 // m
	SmootherBraking        bool

	ConditionalExperimentalMode bool

	CustomPersonalities bool
	AggressiveFollow    float64
	StandardFollow      float64
	RelaxedFollow       float64
	AggressiveJerk      float64
	StandardJerk        float64
	RelaxedJerk         float64

	GreenLightAlert      bool
	SpeedLimitController bool
	SpeedLimitOffset     float64 // m/s

	VisionTurnController bool
	CurveSensitivity     float64
	TurnAggressiveness   float64

	IsMetric bool
}

// FollowFor returns the follow gap in seconds for a personality.
func (c PolicyConfig) FollowFor(p Personality) float64 {
	if c.CustomPersonalities {
		switch p {
		case PersonalityAggressive:
			return c.AggressiveFollow
		case PersonalityRelaxed:
			return c.RelaxedFollow
		default:
			return c.StandardFollow
		}
	}
	return defaultFollow[normalizePersonality(p)]
}

// JerkFor returns the jerk cost factor for a personality.
func (c PolicyConfig) JerkFor(p Personality) float64 {
	if c.CustomPersonalities {
		switch p {
		case PersonalityAggressive:
			return c.AggressiveJerk
		case PersonalityRelaxed:
			return c.RelaxedJerk
		default:
			return c.StandardJerk
		}
	}
	return defaultJerk[normalizePersonality(p)]
}

func normalizePersonality(p Personality) Personality {
	if p < PersonalityAggressive || p > PersonalityRelaxed {
		return PersonalityStandard
	}
	return p
}

// Store reads policy values from a directory of one-file-per-key text
// entries, the same shape the external parameter service writes. Reads
// are cheap and never fail the caller: absent or malformed values fall
// back to defaults.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) get(key string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

func (s *Store) GetBool(key string, def bool) bool {
	v, ok := s.get(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return def
}

func (s *Store) GetInt(key string, def int) int {
	v, ok := s.get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Personality reads the selected personality. Absent or non-numeric
// values fall back to standard; this read must never raise past this
// layer.
func (s *Store) Personality() Personality {
	n := s.GetInt("LongitudinalPersonality", int(PersonalityStandard))
	return normalizePersonality(Personality(n))
}

// LoadPolicy builds one PolicyConfig snapshot. The only error is an
// undefined acceleration profile id, which changes safety-relevant
// bounds and must be surfaced loudly rather than substituted.
func (s *Store) LoadPolicy() (PolicyConfig, error) {
	var c PolicyConfig

	c.IsMetric = s.GetBool("IsMetric", true)

	c.LongitudinalTuning = s.GetBool("LongitudinalTuning", false)
	profile := AccelProfile(s.GetInt("AccelerationProfile", int(ProfileStandard)))
	if !c.LongitudinalTuning {
		profile = ProfileStandard
	}
	if err := ValidateProfile(profile); err != nil {
		return PolicyConfig{}, err
	}
	c.AccelerationProfile = profile

	c.AggressiveAcceleration = s.GetBool("AggressiveAcceleration", false) && c.LongitudinalTuning
	if c.LongitudinalTuning {
		bias := float64(s.GetInt("IncreasedStoppingDistance", 0))
		if !c.IsMetric {
			bias *= FtToM
		}
		c.StoppingDistanceBias = bias
	}
	c.SmootherBraking = s.GetBool("SmootherBraking", false) && c.LongitudinalTuning

	c.ConditionalExperimentalMode = s.GetBool("ConditionalExperimental", false)

	// Personality follow/jerk values are stored as tenths; scale once
	// per refresh, not per cycle.
	c.CustomPersonalities = s.GetBool("CustomPersonalities", false)
	c.AggressiveFollow = float64(s.GetInt("AggressivePersonality", 13)) / 10
	c.StandardFollow = float64(s.GetInt("StandardPersonality", 15)) / 10
	c.RelaxedFollow = float64(s.GetInt("RelaxedPersonality", 18)) / 10
	c.AggressiveJerk = float64(s.GetInt("AggressiveJerk", 5)) / 10
	c.StandardJerk = float64(s.GetInt("StandardJerk", 10)) / 10
	c.RelaxedJerk = float64(s.GetInt("RelaxedJerk", 10)) / 10

	c.GreenLightAlert = s.GetBool("GreenLightAlert", false)
	c.SpeedLimitController = s.GetBool("SpeedLimitController", false)
	c.SpeedLimitOffset = float64(s.GetInt("SpeedLimitOffset", 0)) * KphToMs

	c.VisionTurnController = s.GetBool("VisionTurnControl", false)
	c.CurveSensitivity = float64(s.GetInt("CurveSensitivity", 100)) / 100
	c.TurnAggressiveness = float64(s.GetInt("TurnAggressiveness", 100)) / 100

	return c, nil
}

// Watch delivers a coalesced signal whenever any key in the store
// changes, for the immediate-refresh path. The returned channel carries
// at most one pending signal.
func (s *Store) Watch(ctx context.Context, log *utils.Logger) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("params watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", s.dir, err)
	}

	sig := make(chan struct{}, 1)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
					select {
					case sig <- struct{}{}:
					default:
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("params watcher: %v", err)
			}
		}
	}()
	return sig, nil
}

// RefreshInterval is the policy snapshot cadence in cycles.
const RefreshInterval = 50

// ParameterCache owns the per-cycle view of the store: a PolicyConfig
// snapshot refreshed every RefreshInterval cycles or on a toggles-changed
// signal, and a personality read every cycle.
type ParameterCache struct {
	store   *Store
	log     *utils.Logger
	counter int
	cfg     PolicyConfig
}

func NewParameterCache(store *Store, log *utils.Logger) (*ParameterCache, error) {
	cfg, err := store.LoadPolicy()
	if err != nil {
		return nil, err
	}
	return &ParameterCache{store: store, log: log, cfg: cfg}, nil
}

// Begin is called once at the start of each cycle and returns the config
// snapshot and personality the whole cycle must observe. A failed
// mid-run refresh keeps the previous snapshot and logs the fault.
func (c *ParameterCache) Begin(togglesChanged bool) (PolicyConfig, Personality) {
	if togglesChanged || c.counter%RefreshInterval == 0 {
		cfg, err := c.store.LoadPolicy()
		if err != nil {
			c.log.Error("policy refresh rejected, keeping previous: %v", err)
		} else {
			c.cfg = cfg
		}
	}
	c.counter++
	return c.cfg, c.store.Personality()
}
