package media

import (
	"fmt"
	"strconv"
	"strings"
)

// zoomPanUpscaleWidth is the width images are scaled to before zoompan so the
// sub-pixel drift does not jitter.
const zoomPanUpscaleWidth = 8000

const silenceSource = "anullsrc=r=44100:cl=mono"

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// zoomPanFilter builds the scale+zoompan chain. Zoom grows linearly from 1 to
// the peak scale over the clip while the window drifts by the pan vector.
func zoomPanFilter(req ZoomPanRequest) string {
	frames := req.TotalFrames()
	increment := (req.PeakScale - 1) / float64(frames)
	return fmt.Sprintf(
		"scale=%d:-1,zoompan=z='min(zoom+%.10f,%s)':x='(x+%d)/a*on':y='(y+%d)*on':d=%d:s=%dx%d:fps=%d",
		zoomPanUpscaleWidth,
		increment,
		seconds(req.PeakScale),
		req.Pan.X,
		req.Pan.Y,
		frames,
		req.Width,
		req.Height,
		req.FramesPerSecond,
	)
}

func zoomPanArgs(req ZoomPanRequest) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-loop", "1",
		"-framerate", strconv.Itoa(req.FramesPerSecond),
		"-i", req.ImagePath,
		"-vf", zoomPanFilter(req),
		"-t", strconv.Itoa(req.DurationSeconds),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-f", "mp4",
		req.OutputPath,
	}
}

// mergeFilter pads narration with silence on both sides and trims both
// streams to the total length. Inputs: 0 video, 1 narration, 2 and 3 silence.
func mergeFilter(req MergeRequest) string {
	total := seconds(req.TotalSeconds)
	return strings.Join([]string{
		fmt.Sprintf("[0:v]trim=start=0:end=%s,setpts=PTS-STARTPTS[v]", total),
		"[1:a]aresample=44100,aformat=channel_layouts=mono[n]",
		fmt.Sprintf("[2:a][n][3:a]concat=n=3:v=0:a=1,atrim=duration=%s[a]", total),
	}, ";")
}

func mergeArgs(req MergeRequest) []string {
	padding := seconds(req.PaddingSeconds)
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", req.VideoPath,
		"-i", req.AudioPath,
		"-f", "lavfi", "-t", padding, "-i", silenceSource,
		"-f", "lavfi", "-t", padding, "-i", silenceSource,
		"-filter_complex", mergeFilter(req),
		"-map", "[v]",
		"-map", "[a]",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-f", "mp4",
		req.OutputPath,
	}
}

// concatFilter fades every clip in and out then concatenates video and audio
// separately.
func concatFilter(req ConcatRequest) string {
	fade := seconds(req.FadeSeconds)
	parts := make([]string, 0, 2*len(req.Clips)+2)
	var videoLabels, audioLabels strings.Builder
	for i, clip := range req.Clips {
		fadeOut := clip.DurationSeconds - req.FadeSeconds
		if fadeOut < 0 {
			fadeOut = 0
		}
		out := seconds(fadeOut)
		parts = append(parts,
			fmt.Sprintf("[%d:v]setpts=PTS-STARTPTS,fade=t=in:st=0:d=%s,fade=t=out:st=%s:d=%s[v%d]", i, fade, out, fade, i),
			fmt.Sprintf("[%d:a]asetpts=PTS-STARTPTS,afade=t=in:st=0:d=%s,afade=t=out:st=%s:d=%s[a%d]", i, fade, out, fade, i),
		)
		fmt.Fprintf(&videoLabels, "[v%d]", i)
		fmt.Fprintf(&audioLabels, "[a%d]", i)
	}
	n := len(req.Clips)
	parts = append(parts,
		fmt.Sprintf("%sconcat=n=%d:v=1:a=0[v]", videoLabels.String(), n),
		fmt.Sprintf("%sconcat=n=%d:v=0:a=1[a]", audioLabels.String(), n),
	)
	return strings.Join(parts, ";")
}

func concatArgs(req ConcatRequest) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	for _, clip := range req.Clips {
		args = append(args, "-i", clip.Path)
	}
	return append(args,
		"-filter_complex", concatFilter(req),
		"-map", "[v]",
		"-map", "[a]",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-f", "mp4",
		req.OutputPath,
	)
}
