package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"niftislice/pkg/config"
	"niftislice/pkg/export"
	"niftislice/pkg/nifti"
)

func main() {
	// Parse command line arguments
	inputFile := flag.String("file", "", "NIfTI-1 file to read (.nii or .nii.gz)")
	outputDir := flag.String("out", ".", "Directory to write exported slices to")
	zIndex := flag.Int("z", -1, "Export the axial slice at this index")
	all := flag.Bool("all", false, "Export every axial slice")
	asFloat := flag.Bool("float", false, "Convert the whole volume to float32 after loading")
	configPath := flag.String("config", "", "YAML configuration file")
	printHeader := flag.Bool("print", false, "Print the header")
	metrics := flag.Bool("metrics", false, "Print mean and standard deviation of all voxels")
	mode := flag.String("mode", "", "Normalization mode: minmax or zscore")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	// Validate inputs
	if *inputFile == "" || (*zIndex < 0 && !*all && !*printHeader && !*metrics) {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			logrus.Fatalf("Failed to load config: %v", err)
		}
	}
	if *mode != "" {
		cfg.Export.Mode = *mode
	}
	if *asFloat {
		cfg.Load.AsFloat = true
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	if cfg.Output.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	fmt.Println("================================")
	fmt.Println("NIFTI-1 SLICE EXPORTER")
	fmt.Println("================================")

	startTime := time.Now()
	load := nifti.Load
	if cfg.Load.AsFloat {
		load = nifti.LoadAsFloat
	}
	vol, err := load(*inputFile)
	if err != nil {
		logrus.Fatalf("Failed to load %s: %v", *inputFile, err)
	}
	defer vol.Free()

	fmt.Printf("Loaded %s in %.3f seconds\n", *inputFile, time.Since(startTime).Seconds())
	fmt.Printf("Dimensions: %v, datatype: %s\n", vol.Dims(), vol.DataType())
	if n := vol.Lossy(); n > 0 {
		fmt.Printf("Warning: %d voxels could not be converted and were set to 0\n", n)
	}

	if *printHeader {
		fmt.Println()
		fmt.Println(vol.Header)
	}

	if *metrics {
		m, err := nifti.ComputeMetrics(vol)
		if err != nil {
			logrus.Fatalf("Failed to compute metrics: %v", err)
		}
		fmt.Printf("\nMean: %f\n", m.Mean)
		fmt.Printf("Standard deviation: %f\n", m.Std)
	}

	exporter := export.New()
	exporter.Quality = cfg.Export.Quality
	exporter.Mode = export.Mode(cfg.Export.Mode)
	exporter.K = cfg.Export.ZScoreK

	if *all {
		fmt.Printf("\nExporting %d slices to: %s\n", vol.Depth(), *outputDir)
		paths, err := exporter.ExportSequence(vol, *outputDir, cfg.Output.Prefix, cfg.Extension())
		if err != nil {
			logrus.Fatalf("Slice export failed: %v", err)
		}
		fmt.Printf("Exported %d slices\n", len(paths))
		return
	}

	if *zIndex >= 0 {
		path, err := exportSlice(exporter, vol, *zIndex, *outputDir, cfg)
		if err != nil {
			logrus.Fatalf("Slice export failed: %v", err)
		}
		fmt.Printf("\nSlice %d saved to: %s\n", *zIndex, path)
	}
}

func exportSlice(e *export.Exporter, vol *nifti.Volume, z int, outputDir string, cfg *config.Config) (string, error) {
	view, ok := vol.SliceAt(z)
	if !ok {
		return "", fmt.Errorf("slice %d is outside [0, %d)", z, vol.Depth())
	}

	buf, err := nifti.CopyAsFloat(view)
	if err != nil {
		return "", err
	}
	defer buf.Release()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(outputDir, fmt.Sprintf("%s_z%03d%s", cfg.Output.Prefix, z, cfg.Extension()))
	return path, e.Export(path, buf)
}
