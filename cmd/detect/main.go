// Command detect runs the detection pipeline over a single image or a
// recorded frame sequence.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/inference/engines/onnx"
	"github.com/nvr-ai/go-detect/inference/engines/tflite"
	"github.com/nvr-ai/go-detect/inference/providers"
	"github.com/nvr-ai/go-detect/util"
)

var (
	modelPath  = flag.String("model", "", "path to the model file")
	labelPath  = flag.String("labels", "", "path to the newline-delimited label file")
	configPath = flag.String("config", "", "optional YAML session config")
	engineName = flag.String("engine", "tflite", "inference engine: tflite or onnx")
	imagePath  = flag.String("image", "", "single image to run detection on")
	framesDir  = flag.String("frames", "", "directory of numbered frames to replay in order")
	cpuOnly    = flag.Bool("cpu", false, "skip the accelerated path")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if *modelPath == "" || (*imagePath == "" && *framesDir == "") {
		fmt.Fprintln(os.Stderr, "usage: detect -model model.tflite [-labels labels.txt] (-image img.jpg | -frames dir)")
		os.Exit(2)
	}

	cfg := inference.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = inference.LoadConfig(*configPath); err != nil {
			glog.Exitf("loading config: %v", err)
		}
	}
	if *cpuOnly {
		cfg.Acceleration.Mode = providers.ModeCPU
	}

	var loader inference.Loader
	switch *engineName {
	case "tflite":
		loader = tflite.Loader{}
	case "onnx":
		loader = onnx.Loader{}
	default:
		glog.Exitf("unknown engine %q", *engineName)
	}

	model, err := os.ReadFile(*modelPath)
	if err != nil {
		glog.Exitf("reading model: %v", err)
	}

	session := inference.NewSession(loader, cfg, printResult)
	defer session.Release()

	var labelSource io.Reader
	if *labelPath != "" {
		f, err := os.Open(*labelPath)
		if err != nil {
			// Missing labels degrade to synthetic class names.
			glog.Warningf("label file unavailable: %v", err)
		} else {
			defer f.Close()
			labelSource = f
		}
	}

	if err := session.Initialize(model, labelSource, cfg.Acceleration); err != nil {
		glog.Exitf("initializing session: %v", err)
	}

	if *imagePath != "" {
		runOne(session, *imagePath)
		return
	}

	frames, err := util.LoadFrameSequence(*framesDir)
	if err != nil {
		glog.Exitf("loading frames: %v", err)
	}
	for _, f := range frames {
		img, _, err := image.Decode(bytes.NewReader(f.Data))
		if err != nil {
			glog.Warningf("skipping %s: %v", f.Path, err)
			continue
		}
		fmt.Printf("%s:\n", f.Path)
		if err := session.RunDetection(img); err != nil {
			glog.Exitf("detection pass: %v", err)
		}
	}
}

func runOne(session *inference.Session, path string) {
	f, err := os.Open(path)
	if err != nil {
		glog.Exitf("opening image: %v", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		glog.Exitf("decoding image: %v", err)
	}
	if err := session.RunDetection(img); err != nil {
		glog.Exitf("detection pass: %v", err)
	}
}

func printResult(r inference.Result) {
	if r.Boxes == nil {
		fmt.Println("  no detections")
		return
	}
	fmt.Printf("  %d objects in %dms\n", len(r.Boxes), r.ElapsedMillis)
	for _, d := range r.Boxes {
		fmt.Printf("  %-20s %.2f  (%.3f, %.3f)-(%.3f, %.3f)\n",
			d.Label, d.Score, d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2)
	}
}
