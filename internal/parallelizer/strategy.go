package parallelizer

import (
	"fmt"
	"strings"

	"github.com/pragcc/pragcc/internal/metadata"
	"github.com/pragcc/pragcc/internal/pragma"
)

// Strategy names the directive families of one target. Scope resolution
// and insertion batching are shared by every strategy.
type Strategy interface {
	Target() metadata.Target
	Library() pragma.Library
	// RegionFamily is the directive that wraps a loop scope in braces.
	RegionFamily() string
	// LoopFamilies are the directives placed above a single loop.
	LoopFamilies() []string
}

type openMP struct{}

func (openMP) Target() metadata.Target { return metadata.OpenMP }
func (openMP) Library() pragma.Library { return pragma.OMP }
func (openMP) RegionFamily() string    { return metadata.FamilyParallel }
func (openMP) LoopFamilies() []string {
	return []string{metadata.FamilyFor, metadata.FamilyParallelFor}
}

type openACC struct{}

func (openACC) Target() metadata.Target { return metadata.OpenACC }
func (openACC) Library() pragma.Library { return pragma.ACC }
func (openACC) RegionFamily() string    { return metadata.FamilyData }
func (openACC) LoopFamilies() []string {
	return []string{metadata.FamilyLoop, metadata.FamilyParallelLoop}
}

var (
	// OpenMP annotates with #pragma omp parallel / for / parallel for.
	OpenMP Strategy = openMP{}
	// OpenACC annotates with #pragma acc data / loop / parallel loop.
	OpenACC Strategy = openACC{}
)

// ForTarget returns the strategy of a target.
func ForTarget(t metadata.Target) (Strategy, error) {
	switch t {
	case metadata.OpenMP:
		return OpenMP, nil
	case metadata.OpenACC:
		return OpenACC, nil
	}
	return nil, fmt.Errorf("no strategy for target %q", t)
}

// DirectiveName turns a family key into directive text: parallel_for
// becomes "parallel for".
func DirectiveName(family string) string {
	return strings.ReplaceAll(family, "_", " ")
}
