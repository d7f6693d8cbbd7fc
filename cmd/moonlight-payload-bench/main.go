/*
@Description: Synthetic load generator exercising the video and audio payloaders
@Language: Go 1.23.4
*/

package main

import (
	"crypto/rand"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/urfave/cli"

	"moonlightpay"
	"moonlightpay/internal/frameq"
	"moonlightpay/internal/pacer"
)

func main() {
	myApp := cli.NewApp()
	myApp.Name = "moonlight-payload-bench"
	myApp.Usage = "drive the video and audio payloaders with synthetic frames and report throughput"
	myApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "frames",
			Value: 600,
			Usage: "number of synthetic video frames to push",
		},
		cli.IntFlag{
			Name:  "frame-size",
			Value: 32 * 1024,
			Usage: "synthetic video frame size in bytes",
		},
		cli.IntFlag{
			Name:  "fps",
			Value: 60,
			Usage: "target video frame rate, used to pace frame pushes",
		},
		cli.IntFlag{
			Name:  "payload-size",
			Value: 1024,
			Usage: "target RTP payload size per video shard, in bytes",
		},
		cli.IntFlag{
			Name:  "fec-percentage",
			Value: 20,
			Usage: "FEC parity percentage for the video stream",
		},
		cli.IntFlag{
			Name:  "min-fec-packets",
			Value: 2,
			Usage: "minimum FEC parity packets for the first block of a frame",
		},
		cli.IntFlag{
			Name:  "audio-packets",
			Value: 200,
			Usage: "number of synthetic audio packets to push",
		},
		cli.IntFlag{
			Name:  "report-interval",
			Value: 2,
			Usage: "seconds between stats snapshots printed to stderr, 0 to disable",
		},
	}
	myApp.Action = run

	if err := myApp.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

func run(c *cli.Context) error {
	stats := &moonlightpay.Stats{}

	video, err := moonlightpay.NewVideoPayloader(moonlightpay.VideoConfig{
		PayloadSize:           c.Int("payload-size"),
		FECPercentage:         c.Int("fec-percentage"),
		MinRequiredFECPackets: c.Int("min-fec-packets"),
		AddPadding:            true,
	}, moonlightpay.WithVideoStats(stats))
	if err != nil {
		return fmt.Errorf("constructing video payloader: %w", err)
	}

	audio, err := moonlightpay.NewAudioPayloader(moonlightpay.AudioConfig{
		Key:    randomBytes(16),
		IVSeed: seedFromRandom(),
	}, moonlightpay.WithAudioStats(stats))
	if err != nil {
		return fmt.Errorf("constructing audio payloader: %w", err)
	}

	reportInterval := c.Int("report-interval")
	if reportInterval > 0 {
		scheduleReports(stats, time.Duration(reportInterval)*time.Second)
	}

	queue := frameq.New[[]byte](c.Int("frames"))
	for i := 0; i < c.Int("frames"); i++ {
		queue.Push(randomBytes(c.Int("frame-size")))
	}

	fps := c.Int("fps")
	if fps < 1 {
		fps = 1
	}
	framePeriod := time.Second / time.Duration(fps)

	var wg sync.WaitGroup
	var videoMu sync.Mutex // pacer runs tasks on separate goroutines
	start := time.Now()
	deadline := start
	for {
		frame, ok := queue.Pop()
		if !ok {
			break
		}
		deadline = deadline.Add(framePeriod)

		wg.Add(1)
		pacer.System.Put(func() {
			defer wg.Done()
			videoMu.Lock()
			shards, err := video.PushFrame(frame)
			videoMu.Unlock()
			if err != nil {
				log.Printf("video push failed: %v", err)
				return
			}
			moonlightpay.ReleaseShards(shards)
		}, deadline)
	}

	for i := 0; i < c.Int("audio-packets"); i++ {
		shards, err := audio.PushPacket(randomBytes(240))
		if err != nil {
			return fmt.Errorf("audio push failed: %w", err)
		}
		moonlightpay.ReleaseShards(shards)
	}

	wg.Wait()
	printSnapshot(stats, time.Since(start))
	return nil
}

func scheduleReports(stats *moonlightpay.Stats, interval time.Duration) {
	var tick func(time.Time)
	start := time.Now()
	tick = func(at time.Time) {
		printSnapshot(stats, time.Since(start))
		pacer.System.Put(func() { tick(at.Add(interval)) }, at.Add(interval))
	}
	pacer.System.Put(func() { tick(time.Now()) }, time.Now().Add(interval))
}

func printSnapshot(stats *moonlightpay.Stats, elapsed time.Duration) {
	s := stats.Snapshot()
	fmt.Fprintf(os.Stderr, "[%.1fs] video_shards=%d video_fec=%d audio_shards=%d audio_fec=%d bytes=%d crypto_failures=%d oversized=%d\n",
		elapsed.Seconds(), s.VideoShardsEmitted, s.VideoFECShardsEmitted, s.AudioShardsEmitted, s.AudioFECShardsEmitted,
		s.BytesEmitted, s.CryptoFailures, s.OversizedPayloads)
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

func seedFromRandom() [8]byte {
	var seed [8]byte
	_, _ = rand.Read(seed[:])
	return seed
}
