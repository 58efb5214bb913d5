package evo

// Chromosome is an immutable candidate solution.
//
// Fingerprint is derived from the encoded genetic data only: two chromosomes
// carrying identical data share a fingerprint regardless of age, generation,
// parents or fitness.
type Chromosome interface {
	Fingerprint() string
	Fitness() Fitness
	Age() int
	Generation() int
	Parents() []Chromosome
}

// ChromosomeBuilder clones chromosomes with overridden metadata. The engine
// only uses it to bump the age of survivors.
type ChromosomeBuilder[C Chromosome] interface {
	From(c C) ChromosomeBuilder[C]
	WithAge(age int) ChromosomeBuilder[C]
	WithGeneration(generation int) ChromosomeBuilder[C]
	Build() (C, error)
}

// BuilderFactory returns a fresh builder on every call.
type BuilderFactory[C Chromosome] func() ChromosomeBuilder[C]

func incrementAge[C Chromosome](newBuilder BuilderFactory[C], c C) (C, error) {
	return newBuilder().From(c).WithAge(c.Age() + 1).Build()
}
