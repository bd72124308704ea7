package speech

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// ffmpeg invocation constants.
const (
	ffmpegBinary       = "ffmpeg"
	silenceFileName    = "silence.ogg"
	concatListName     = "concat.txt"
	combinedFileName   = "combined.ogg"
	segmentFilePattern = "segment_%03d.ogg"
	opusSampleRate     = "48000"
)

// FFmpegConcatenator joins OGG Opus segments into one stream by shelling out
// to ffmpeg, inserting a fixed silence gap between segments.
type FFmpegConcatenator struct{}

// NewFFmpegConcatenator creates an FFmpegConcatenator.
func NewFFmpegConcatenator() *FFmpegConcatenator {
	return &FFmpegConcatenator{}
}

// Concatenate joins the audio segments with a silence gap between each pair
// and re-encodes the result to a single OGG Opus stream. A single segment is
// returned unchanged without touching ffmpeg.
func (f *FFmpegConcatenator) Concatenate(
	ctx context.Context,
	segments [][]byte,
	silence time.Duration,
) ([]byte, error) {
	if len(segments) == 1 {
		return segments[0], nil
	}

	workDir, err := os.MkdirTemp("", "speech-concat-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	silencePath, err := f.renderSilence(ctx, workDir, silence)
	if err != nil {
		return nil, err
	}

	listPath, err := writeConcatList(workDir, segments, silencePath)
	if err != nil {
		return nil, err
	}

	combinedPath := filepath.Join(workDir, combinedFileName)

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:a", "libopus",
		combinedPath,
	}

	cmd := exec.CommandContext(ctx, ffmpegBinary, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf(
			"ffmpeg concat failed: %w - output: %s", err, string(output))
	}

	combined, err := os.ReadFile(combinedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read combined audio: %w", err)
	}

	return combined, nil
}

// renderSilence generates the inter-segment silence gap as an OGG Opus file.
func (f *FFmpegConcatenator) renderSilence(
	ctx context.Context,
	workDir string,
	silence time.Duration,
) (string, error) {
	silencePath := filepath.Join(workDir, silenceFileName)

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", "anullsrc=r=" + opusSampleRate + ":cl=mono",
		"-t", strconv.FormatFloat(silence.Seconds(), 'f', 3, 64),
		"-c:a", "libopus",
		silencePath,
	}

	cmd := exec.CommandContext(ctx, ffmpegBinary, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf(
			"ffmpeg silence generation failed: %w - output: %s", err, string(output))
	}

	return silencePath, nil
}

// writeConcatList writes the segments to disk and builds the ffmpeg concat
// demuxer list, alternating segments with the silence file.
func writeConcatList(workDir string, segments [][]byte, silencePath string) (string, error) {
	var list string

	for i, segment := range segments {
		segmentPath := filepath.Join(workDir, fmt.Sprintf(segmentFilePattern, i))

		err := os.WriteFile(segmentPath, segment, filePermissions)
		if err != nil {
			return "", fmt.Errorf("failed to write segment %d: %w", i, err)
		}

		if i > 0 {
			list += fmt.Sprintf("file '%s'\n", silencePath)
		}

		list += fmt.Sprintf("file '%s'\n", segmentPath)
	}

	listPath := filepath.Join(workDir, concatListName)

	err := os.WriteFile(listPath, []byte(list), filePermissions)
	if err != nil {
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}

	return listPath, nil
}
