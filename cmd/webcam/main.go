// Command webcam runs live detection over a capture device. It is the
// caller side of the pipeline: frames arriving faster than the worker can
// process are dropped in favor of the latest one, never queued.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/detector"
	"github.com/nvr-ai/go-detect/inference"
	"github.com/nvr-ai/go-detect/inference/engines/tflite"
	"github.com/nvr-ai/go-detect/inference/providers"
)

var (
	deviceID  = flag.Int("device", 0, "video capture device ID")
	modelPath = flag.String("model", "", "path to the TFLite model file")
	labelPath = flag.String("labels", "", "path to the newline-delimited label file")
	cpuOnly   = flag.Bool("cpu", false, "skip the accelerated path")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if *modelPath == "" {
		fmt.Fprintln(os.Stderr, "usage: webcam -model model.tflite [-labels labels.txt] [-device 0]")
		os.Exit(2)
	}

	cfg := inference.DefaultConfig()
	if *cpuOnly {
		cfg.Acceleration.Mode = providers.ModeCPU
	}

	model, err := os.ReadFile(*modelPath)
	if err != nil {
		glog.Exitf("reading model: %v", err)
	}

	session := inference.NewSession(tflite.Loader{}, cfg, printResult)
	defer session.Release()

	var labelSource *os.File
	if *labelPath != "" {
		if labelSource, err = os.Open(*labelPath); err != nil {
			glog.Warningf("label file unavailable: %v", err)
			labelSource = nil
		}
	}
	if labelSource != nil {
		err = session.Initialize(model, labelSource, cfg.Acceleration)
		labelSource.Close()
	} else {
		err = session.Initialize(model, nil, cfg.Acceleration)
	}
	if err != nil {
		glog.Exitf("initializing session: %v", err)
	}

	worker := detector.New(session)
	worker.Start()
	defer worker.Stop()

	webcam, err := gocv.OpenVideoCapture(*deviceID)
	if err != nil {
		glog.Exitf("opening capture device %d: %v", *deviceID, err)
	}
	defer webcam.Close()

	mat := gocv.NewMat()
	defer mat.Close()

	fmt.Printf("reading camera device %d\n", *deviceID)

	captured, dropped := 0, 0
	lastReport := time.Now()
	for {
		if ok := webcam.Read(&mat); !ok {
			glog.Exitf("cannot read device %d", *deviceID)
		}
		if mat.Empty() {
			continue
		}

		frame, err := mat.ToImage()
		if err != nil {
			glog.Warningf("frame conversion failed: %v", err)
			continue
		}

		captured++
		if !worker.Submit(frame) {
			dropped++
		}

		if elapsed := time.Since(lastReport); elapsed >= time.Second {
			fps := float64(captured) / elapsed.Seconds()
			fmt.Printf("capture %.1f fps, %d stale frames dropped\n", fps, dropped)
			captured, dropped = 0, 0
			lastReport = time.Now()
		}
	}
}

func printResult(r inference.Result) {
	if r.Boxes == nil {
		return
	}
	fmt.Printf("%d objects in %dms\n", len(r.Boxes), r.ElapsedMillis)
	for _, d := range r.Boxes {
		fmt.Printf("  %-20s %.2f  (%.3f, %.3f)-(%.3f, %.3f)\n",
			d.Label, d.Score, d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2)
	}
}
