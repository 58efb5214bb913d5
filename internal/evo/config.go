package evo

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	DefaultMatesTimeout = 5 * time.Second
	DefaultStatsBuffer  = 256
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config wires the strategy ports and tuning parameters of an Engine.
// Every port is mandatory. Ports invoked from worker goroutines (appearance,
// mutation, mates selection, crossover, chromosome builders) must be safe
// for concurrent use; predicates, selection and termination are called from
// a single goroutine at a time.
type Config[C Chromosome] struct {
	Name       string            `validate:"max=128"`
	Properties map[string]string `validate:"-"`

	Termination          TerminationCondition[C]      `validate:"-"`
	Appearance           AppearanceSource[C]          `validate:"-"`
	NewPopulationBuilder func() *PopulationBuilder[C] `validate:"-"`
	MutationSelector     SelectionPredicate[C]        `validate:"-"`
	Mutation             MutationStrategy[C]          `validate:"-"`
	Parent1Selector      SelectionPredicate[C]        `validate:"-"`
	MatesSelector        MatesSelector[C]             `validate:"-"`
	Crossover            CrossoverStrategy[C]         `validate:"-"`
	Selection            SelectionStrategy[C]         `validate:"-"`
	NewChromosomeBuilder BuilderFactory[C]            `validate:"-"`

	// BufferSize bounds the candidate pool handed to Selection.
	BufferSize int `validate:"gt=0"`
	// MatesTimeout bounds one mates selection. Zero means DefaultMatesTimeout.
	MatesTimeout time.Duration `validate:"gte=0"`
	// Workers bounds concurrent pipeline tasks. Zero means GOMAXPROCS.
	Workers int `validate:"gte=0"`
	// StatsBuffer is the per-subscriber stats channel capacity. Zero means
	// DefaultStatsBuffer.
	StatsBuffer int `validate:"gte=0"`

	// MutateElite offers the elite to the mutation selector as well.
	MutateElite bool
	// SkipFailedCrossover drops a crossover attempt that failed or timed out
	// instead of failing the whole generation.
	SkipFailedCrossover bool

	Logger   *zerolog.Logger `validate:"-"`
	Observer Observer        `validate:"-"`
}

func (c Config[C]) validate(requireTermination bool) error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%w: %s must satisfy %s%s", ErrInvalidArgument, fe.Field(), fe.Tag(), paramSuffix(fe.Param())))
			}
		} else {
			errs = append(errs, err)
		}
	}

	missing := func(name string, isMissing bool) {
		if isMissing {
			errs = append(errs, fmt.Errorf("%w: %s is required", ErrIllegalState, name))
		}
	}
	if requireTermination {
		missing("Termination", c.Termination == nil)
	}
	missing("Appearance", c.Appearance == nil)
	missing("NewPopulationBuilder", c.NewPopulationBuilder == nil)
	missing("MutationSelector", c.MutationSelector == nil)
	missing("Mutation", c.Mutation == nil)
	missing("Parent1Selector", c.Parent1Selector == nil)
	missing("MatesSelector", c.MatesSelector == nil)
	missing("Crossover", c.Crossover == nil)
	missing("Selection", c.Selection == nil)
	missing("NewChromosomeBuilder", c.NewChromosomeBuilder == nil)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid engine config: %w", errors.Join(errs...))
}

func paramSuffix(param string) string {
	if param == "" {
		return ""
	}
	return "=" + param
}

func (c Config[C]) withDefaults() Config[C] {
	if c.MatesTimeout == 0 {
		c.MatesTimeout = DefaultMatesTimeout
	}
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.StatsBuffer == 0 {
		c.StatsBuffer = DefaultStatsBuffer
	}
	if c.Observer == nil {
		c.Observer = NopObserver{}
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	props := make(map[string]string, len(c.Properties))
	for k, v := range c.Properties {
		props[k] = v
	}
	c.Properties = props
	return c
}
