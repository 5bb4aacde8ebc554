package main

/*
  duplex-call runs the duplex read-processing pipeline over basecalled
  read dumps: raw-signal scaling, duplex splitting, template/complement
  pairing and quality filtering, ending in FASTQ output. Basecalling and
  modified-base model execution live behind external runners and are not
  part of this tool.
*/

import (
	"flag"
	"os"
	"runtime"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/strandbio/duplex/pipeline"
	"github.com/strandbio/duplex/read"
	"github.com/strandbio/duplex/splitter"
)

var (
	readsFlag    = flag.String("reads", "", "Comma-separated list of read dump files")
	pairsFile    = flag.String("pairs", "", "Two-column file of template/complement read ID pairs")
	outputPath   = flag.String("output", "", "Output FASTQ filename; empty writes to stdout")
	gzipOut      = flag.Bool("gzip", false, "Compress the FASTQ output")
	minQScore    = flag.Float64("min-qscore", 0, "Drop reads with mean qscore below this value")
	threads      = flag.Int("threads", runtime.NumCPU(), "Worker threads for the scaler and splitter nodes")
	maxReads     = flag.Int("queue-size", 1000, "Messages buffered per pipeline node")
	noSplit      = flag.Bool("no-split", false, "Disable duplex read splitting")
	simplexSplit = flag.Bool("simplex-split", false, "Restrict splitting to pore+adapter evidence")
)

func main() {
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() > 0 {
		log.Fatalf("unparsed arguments: '%s'", strings.Join(flag.Args(), " "))
	}
	if *readsFlag == "" {
		log.Fatalf("no input: pass --reads")
	}
	files := strings.Split(*readsFlag, ",")

	out := os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			log.Fatalf("creating %s: %v", *outputPath, err)
		}
		defer f.Close()
		out = f
	}

	// Build the pipeline bottom-up, terminal sink first.
	writer := pipeline.NewWriterNode(out, pipeline.WriterOpts{Gzip: *gzipOut, MaxReads: *maxReads})
	filter := pipeline.NewReadFilterNode(writer, *minQScore, 1, *maxReads)

	var head pipeline.MessageSink = filter
	var stereo *pipeline.StereoDuplexEncoderNode
	if *pairsFile != "" {
		pairs, _, err := pipeline.LoadPairsFile(*pairsFile)
		if err != nil {
			log.Fatalf("loading pairs: %v", err)
		}
		log.Printf("loaded %d read pairs", len(pairs))
		stereo = pipeline.NewStereoDuplexEncoderNode(head, pairs, 1, *maxReads)
		head = stereo
	}

	settings := splitter.DefaultSettings()
	settings.Enabled = !*noSplit
	settings.SimplexMode = *simplexSplit
	split := splitter.New(head, settings, *threads, *maxReads)

	scaler := pipeline.NewScalerNode(split, *threads, *maxReads)

	err := traverse.Each(len(files), func(i int) error {
		return loadReads(files[i], func(r *read.Read) error {
			return scaler.Push(r)
		})
	})
	if err != nil {
		log.Error.Printf("ingest: %v", err)
	}

	// Tear down source-ward first so termination propagates leaf-ward.
	scaler.Close()
	split.Close()
	if stereo != nil {
		stereo.Close()
	}
	filter.Close()
	if err := writer.Close(); err != nil {
		log.Fatalf("writer: %v", err)
	}
}
