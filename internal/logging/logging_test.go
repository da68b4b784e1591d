package logger

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name       string
		logger     Logger
		wantInfo   bool
		wantDebug  bool
		wantErrors bool
	}{
		{"quiet", Logger{}, false, false, false},
		{"verbose", Logger{Verbose: true}, true, false, true},
		{"debug", Logger{Debug: true}, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			l := tt.logger
			l.Out = &out
			l.Err = &errOut

			l.Infof("info %d", 1)
			l.Debugf("debug %d", 2)
			l.Errorf("error %d", 3)
			l.Warnf("warn %d", 4)

			assert.Equal(t, tt.wantInfo, bytes.Contains(out.Bytes(), []byte("[info] info 1")))
			assert.Equal(t, tt.wantDebug, bytes.Contains(out.Bytes(), []byte("[debug] debug 2")))
			assert.Equal(t, tt.wantErrors, bytes.Contains(errOut.Bytes(), []byte("[error] error 3")))
			assert.Contains(t, errOut.String(), "[warn] warn 4")
		})
	}
}

func TestErrorfAndReturn(t *testing.T) {
	var errOut bytes.Buffer
	l := Logger{Err: &errOut}

	err := l.ErrorfAndReturn("failed to open %s", "secrets")

	assert.EqualError(t, err, "failed to open secrets")
}
