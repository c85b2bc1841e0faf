package fml

import (
	"encoding/binary"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/bgtools/fmlsim/signature"
	"github.com/carbocation/pfx"
	"github.com/minio/blake2b-simd"
	"gopkg.in/guregu/null.v3"
)

// ExclusionReason explains why an element produced no result row.
type ExclusionReason string

const (
	ExcludedEmpty         ExclusionReason = "no resolvable observations"
	ExcludedNotComputable ExclusionReason = "zero simulation probability"
	ExcludedTaskFailure   ExclusionReason = "task failure"
)

// Excluded records one element left out of the result table.
type Excluded struct {
	ElementID string
	Reason    ExclusionReason
	Detail    string
}

// RunResult is the outcome of a whole run: one row per computable element
// plus the excluded elements, reported once.
type RunResult struct {
	Results  []*ElementResult
	Excluded []Excluded
}

// Runner executes the per-element analysis pipeline across a bounded worker
// pool. Tasks are independent: they share only the read-only oracle inputs,
// and their results meet at a single merge point after all tasks complete.
type Runner struct {
	Oracle    ScoreOracle
	Sequence  SequenceSource
	Stops     StopSource
	Signature signature.Table
	Config    Config
}

// Run analyzes every element with at least one mapped mutation. Given
// identical inputs and the same seed, the result table is bit-identical
// regardless of the worker count: each element derives its generator purely
// from (run seed, element id).
func (r *Runner) Run(elements []Element, mutations map[string][]Mutation) (*RunResult, error) {
	if err := r.Config.Validate(); err != nil {
		return nil, pfx.Err(err)
	}
	if r.Config.IncludeIndels && r.Config.IndelMethod == IndelsAsStops && r.Stops == nil {
		return nil, pfx.Err(fmt.Errorf("indels configured as stops but no stop-score data is available"))
	}

	cohortRatio := 0.0
	if !r.Config.GeneExomicFrameshiftRatio {
		cohortRatio = CohortFrameshiftRatio(elements, mutations)
	}

	tasks := make([]Element, 0, len(elements))
	for _, e := range elements {
		if len(mutations[e.ID]) > 0 {
			tasks = append(tasks, e)
		}
	}

	workers := r.Config.Cores
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tasks) && len(tasks) > 0 {
		workers = len(tasks)
	}

	type outcome struct {
		result   *ElementResult
		excluded *Excluded
	}

	taskCh := make(chan Element)
	outCh := make(chan outcome, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for element := range taskCh {
				res, exc := r.runElement(element, mutations[element.ID], cohortRatio)
				outCh <- outcome{result: res, excluded: exc}
			}
		}()
	}

	go func() {
		for _, e := range tasks {
			taskCh <- e
		}
		close(taskCh)
		wg.Wait()
		close(outCh)
	}()

	out := &RunResult{}
	for o := range outCh {
		if o.result != nil {
			out.Results = append(out.Results, o.result)
		}
		if o.excluded != nil {
			out.Excluded = append(out.Excluded, *o.excluded)
		}
	}

	// Canonical order: the table itself is order-independent with respect to
	// scheduling, sorting just fixes the presentation.
	sort.Slice(out.Results, func(i, j int) bool { return out.Results[i].ElementID < out.Results[j].ElementID })
	sort.Slice(out.Excluded, func(i, j int) bool { return out.Excluded[i].ElementID < out.Excluded[j].ElementID })

	Correct(out.Results)

	if len(out.Excluded) > 0 {
		log.Printf("%d of %d elements excluded from the result table", len(out.Excluded), len(tasks))
	}

	return out, nil
}

// runElement runs the full pipeline for one element. Failures are isolated:
// a panic inside the task excludes the element and the run continues.
func (r *Runner) runElement(element Element, muts []Mutation, cohortRatio float64) (result *ElementResult, excluded *Excluded) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("element %s: task failure: %v", element.ID, rec)
			result = nil
			excluded = &Excluded{ElementID: element.ID, Reason: ExcludedTaskFailure, Detail: fmt.Sprint(rec)}
		}
	}()

	rng := rand.New(rand.NewSource(elementSeed(r.Config.Seed, element.ID)))

	scorer := &Scorer{Oracle: r.Oracle, Sequence: r.Sequence, Stops: r.Stops, Config: r.Config}
	observed, err := scorer.ScoreElement(element, muts, rng)
	if err != nil {
		log.Printf("element %s: %v", element.ID, err)
		return nil, &Excluded{ElementID: element.ID, Reason: ExcludedTaskFailure, Detail: err.Error()}
	}
	if len(observed.Observations) == 0 {
		return nil, &Excluded{ElementID: element.ID, Reason: ExcludedEmpty}
	}

	pFrameshift := 0.0
	if r.Config.IncludeIndels && r.Config.IndelMethod == IndelsAsStops && element.Coding {
		if r.Config.GeneExomicFrameshiftRatio {
			pFrameshift = elementFrameshiftRatio(observed)
		} else {
			pFrameshift = cohortRatio
		}
	}

	builder := &ModelBuilder{
		Oracle:    r.Oracle,
		Sequence:  r.Sequence,
		Stops:     r.Stops,
		Signature: r.Signature,
		Config:    r.Config,
	}
	space, err := builder.Build(element, observed, pFrameshift)
	if err != nil {
		if nc, ok := err.(*NotComputableError); ok {
			log.Printf("warning: %v", nc)
			return nil, &Excluded{ElementID: element.ID, Reason: ExcludedNotComputable, Detail: nc.Error()}
		}
		log.Printf("element %s: %v", element.ID, err)
		return nil, &Excluded{ElementID: element.ID, Reason: ExcludedTaskFailure, Detail: err.Error()}
	}

	observedStat := Reduce(r.Config.Statistic, observed.Scores())
	tally := RunSampling(space, rng, r.Config, len(observed.Observations), observedStat)

	res := &ElementResult{
		ElementID:    element.ID,
		Mutations:    len(observed.Observations),
		Recurrence:   observed.Recurrence(),
		Samples:      observed.SampleCount(),
		Simulations:  tally.Size,
		GreaterEqual: tally.GreaterEqual,
		LessEqual:    tally.LessEqual,
		PValue:       pValue(tally.GreaterEqual, tally.Size),
		PValueNeg:    pValue(tally.LessEqual, tally.Size),
	}
	if element.Symbol != "" {
		res.Symbol = null.StringFrom(element.Symbol)
	}

	return res, nil
}

// elementSeed derives a per-element seed as a pure function of the run seed
// and the element ID, so scheduling order and worker count cannot influence
// the numeric results.
func elementSeed(runSeed int64, elementID string) int64 {
	h := blake2b.New256()

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(runSeed))
	h.Write(buf[:])
	h.Write([]byte(elementID))

	sum := h.Sum(nil)
	return int64(binary.BigEndian.Uint64(sum[:8]) &^ (1 << 63))
}
