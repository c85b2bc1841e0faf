// fmlsim estimates, per genomic element, whether the observed somatic
// mutations carry a higher functional-impact burden than expected under a
// local null mutational model built from the cohort's trinucleotide
// signature.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bgtools/fmlsim/buildinfo"
	"github.com/bgtools/fmlsim/fml"
	"github.com/bgtools/fmlsim/qq"
	"github.com/bgtools/fmlsim/scoredb"
	"github.com/bgtools/fmlsim/signature"
)

func main() {
	buildinfo.PrintToStdErr()

	var (
		mutationsFile      string
		elementsFile       string
		scoresFile         string
		referenceFile      string
		signatureMethod    string
		signatureFile      string
		signatureNormalize bool
		outputFile         string
		qqFile             string

		sampling       int
		samplingMax    int
		samplingChunk  int
		samplingMinObs int
		statistic      string
		discardMNP     bool
		noIndels       bool
		indelMethod    string
		maxIndelLength int
		maxConsecutive int
		minStops       int
		stopsFunction  string
		geneRatio      bool
		cores          int
		seed           int64
	)

	flag.StringVar(&mutationsFile, "input", "", "Tab-delimited somatic mutations file (CHROMOSOME, POSITION, REF, ALT, SAMPLE, optional SIGNATURE).")
	flag.StringVar(&elementsFile, "elements", "", "Tab-delimited genomic elements file (CHROMOSOME, START, STOP, STRAND, ELEMENT, SYMBOL, CODING).")
	flag.StringVar(&scoresFile, "scores", "", "SQLite scores database with per-substitution impact scores and per-element stop scores.")
	flag.StringVar(&referenceFile, "reference", "", "Reference genome FASTA.")
	flag.StringVar(&signatureMethod, "signature", "complement", "Signature method: none, full, complement, or file.")
	flag.StringVar(&signatureFile, "signature-file", "", "Precomputed signature file (required when -signature=file).")
	flag.BoolVar(&signatureNormalize, "signature-normalize", false, "Correct the signature by triplet availability across the analyzed elements.")
	flag.StringVar(&outputFile, "output", "", "Output TSV file. Defaults to stdout.")
	flag.StringVar(&qqFile, "qqplot", "", "Optional QQ-plot PNG output file.")
	flag.IntVar(&sampling, "sampling", 100000, "Minimum number of simulated mutation sets per element.")
	flag.IntVar(&samplingMax, "sampling-max", 1000000, "Maximum number of simulated mutation sets per element.")
	flag.IntVar(&samplingChunk, "sampling-chunk", 100000, "Simulated sets per sampling batch.")
	flag.IntVar(&samplingMinObs, "sampling-min-obs", 10, "Extreme outcomes in both tails needed to stop early.")
	flag.StringVar(&statistic, "statistic", "amean", "Reduction applied to scores: amean or gmean.")
	flag.BoolVar(&discardMNP, "discard-mnp", false, "Drop multi-nucleotide substitutions instead of scoring them.")
	flag.BoolVar(&noIndels, "no-indels", false, "Discard indels from the analysis.")
	flag.StringVar(&indelMethod, "indel-method", "max", "Indel scoring method: max (as substitutions) or stop.")
	flag.IntVar(&maxIndelLength, "max-indel-length", 20, "Drop indels longer than this.")
	flag.IntVar(&maxConsecutive, "max-consecutive", 7, "Drop indels whose unit repeats at least this many times around the site. 0 disables.")
	flag.IntVar(&minStops, "min-stops", 3, "Minimum stop scores per element before the stops function applies.")
	flag.StringVar(&stopsFunction, "stops-function", "mean", "Reduction over stop scores: mean, median, random, or random_choice.")
	flag.BoolVar(&geneRatio, "gene-exomic-frameshift-ratio", false, "Derive the frameshift probability per element instead of cohort-wide.")
	flag.IntVar(&cores, "cores", 0, "Worker pool size. 0 uses all available cores.")
	flag.Int64Var(&seed, "seed", 1, "Run-level random seed.")
	flag.Parse()

	if mutationsFile == "" || elementsFile == "" || scoresFile == "" || referenceFile == "" {
		flag.PrintDefaults()
		return
	}

	statMethod, err := fml.ParseStatisticMethod(statistic)
	if err != nil {
		log.Fatalln(err)
	}
	indMethod, err := fml.ParseIndelMethod(indelMethod)
	if err != nil {
		log.Fatalln(err)
	}
	stopsFn, err := fml.ParseStopsFunction(stopsFunction)
	if err != nil {
		log.Fatalln(err)
	}

	cfg := fml.Config{
		Sampling:                  sampling,
		SamplingMax:               samplingMax,
		SamplingChunk:             samplingChunk,
		SamplingMinObs:            samplingMinObs,
		Statistic:                 statMethod,
		DiscardMNP:                discardMNP,
		IncludeIndels:             !noIndels,
		IndelMethod:               indMethod,
		MaxIndelLength:            maxIndelLength,
		MaxConsecutive:            maxConsecutive,
		MinStopsPerElement:        minStops,
		StopsFunction:             stopsFn,
		GeneExomicFrameshiftRatio: geneRatio,
		Cores:                     cores,
		Seed:                      seed,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}

	reference, err := ReadFasta(referenceFile)
	if err != nil {
		log.Fatalln(err)
	}

	elements, err := ReadElements(elementsFile)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Loaded %d elements", len(elements))

	mutations, err := ReadMutations(mutationsFile)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Loaded %d mutations", len(mutations))

	mapped := MapMutations(elements, mutations)

	sig, err := buildSignature(signatureMethod, signatureFile, mutations, reference)
	if err != nil {
		log.Fatalln(err)
	}
	if sig != nil && signatureNormalize {
		sig = sig.NormalizeBySites(countTripletSites(elements, reference, signatureMethod == "complement"))
	}

	scores, err := scoredb.Open(scoresFile)
	if err != nil {
		log.Fatalln(err)
	}
	defer scores.Close()

	runner := &fml.Runner{
		Oracle:    scores,
		Sequence:  reference,
		Stops:     scores,
		Signature: sig,
		Config:    cfg,
	}

	run, err := runner.Run(elements, mapped)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Computed %d elements", len(run.Results))

	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			log.Fatalln(err)
		}
		defer f.Close()
		out = f
	}
	if err := WriteResults(run.Results, out); err != nil {
		log.Fatalln(err)
	}

	if outputFile != "" {
		if err := PrintHistogram(run.Results); err != nil {
			log.Println(err)
		}
	}

	if qqFile != "" && len(run.Results) > 0 {
		f, err := os.Create(qqFile)
		if err != nil {
			log.Fatalln(err)
		}
		defer f.Close()
		ps := make([]float64, 0, len(run.Results))
		for _, r := range run.Results {
			ps = append(ps, r.PValue)
		}
		if err := qq.Plot(ps, f); err != nil {
			log.Fatalln(err)
		}
	}
}

// buildSignature assembles the trinucleotide signature per the configured
// method: none, a precomputed file, or computation from the cohort's SNVs.
func buildSignature(method, path string, mutations []fml.Mutation, reference fml.MemorySequence) (signature.Table, error) {
	switch method {
	case "none":
		log.Println("Not using any signature")
		return nil, nil
	case "file":
		if path == "" {
			return nil, fmt.Errorf("-signature=file requires -signature-file")
		}
		return signature.Load(path)
	case "full", "complement":
		var observations []signature.Observation
		for _, m := range mutations {
			if m.Type != fml.SNP {
				continue
			}
			triplet, err := reference.Reference(m.Chromosome, m.Position-1, 3)
			if err != nil {
				continue
			}
			observations = append(observations, signature.Observation{
				RefTriplet: triplet,
				AltTriplet: triplet[:1] + m.Alt + triplet[2:],
				Classifier: m.Classifier,
			})
		}
		return signature.Compute(observations, method == "complement"), nil
	}
	return nil, fmt.Errorf("unknown signature method %q", method)
}

// countTripletSites tallies how often each reference triplet occurs across
// the analyzed elements' segments. With collapse set, each site also counts
// toward its reverse complement, matching a strand-folded signature.
func countTripletSites(elements []fml.Element, reference fml.MemorySequence, collapse bool) map[string]float64 {
	out := make(map[string]float64)
	for _, e := range elements {
		for _, seg := range e.Segments {
			for pos := seg.Start; pos <= seg.End; pos++ {
				triplet, err := reference.Reference(seg.Chromosome, pos-1, 3)
				if err != nil {
					continue
				}
				out[triplet]++
				if collapse {
					out[signature.ReverseComplement(triplet)]++
				}
			}
		}
	}
	return out
}
