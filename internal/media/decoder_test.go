package media

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderRejectsOutOfRangeFrames(t *testing.T) {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	info := Info{Path: "clip.mp4", FrameRate: 25, FrameCount: 10}
	d := NewFFmpegDecoder("ffmpeg", info, l)

	assert.Equal(t, info, d.Info())

	_, err := d.ExtractFrame(-1)
	require.Error(t, err)
	_, err = d.ExtractFrame(10)
	require.Error(t, err)
}
