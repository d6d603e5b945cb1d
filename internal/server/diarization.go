package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"speakerstream/internal/pipeline"
)

var errMissingAudio = errors.New("request must carry a 'path' parameter or a 'file' upload")

// handleDiarization runs the full pipeline over the request's audio and
// streams segment results back as newline-delimited JSON, one object per
// completed speaker turn. Results are written as they become available, so
// slow transcription of a late turn never delays delivery of earlier ones.
func (s *Server) handleDiarization(c *gin.Context) {
	audioPath, cleanup, err := s.resolveAudio(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if cleanup != nil {
		defer cleanup()
	}

	it := s.stream.Stream(c.Request.Context(), audioPath)

	// Pull the first result before committing to a status code so that
	// setup failures (model load, audio decode) still produce a 500.
	if !it.Next() {
		if err := it.Err(); err != nil {
			s.logger.Error("diarization failed", zap.String("audio", audioPath), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusOK)
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)

	out := pipeline.NewJSONOutput(c.Writer, s.logger)
	for {
		if err := out.WriteResult(it.Result()); err != nil {
			s.logger.Warn("stopped streaming results", zap.Error(err))
			return
		}
		c.Writer.Flush()
		if !it.Next() {
			break
		}
	}

	// The status line is already on the wire. All that can be done for a
	// mid-stream failure is to log it and truncate the response.
	if err := it.Err(); err != nil {
		s.logger.Error("diarization aborted mid-stream",
			zap.String("audio", audioPath),
			zap.Error(err))
	}
}

// resolveAudio picks the input audio for a diarization request: a server-side
// path passed as the "path" parameter, or an uploaded file under the "file"
// multipart field. Uploads are written to the upload directory under a fresh
// name; the returned cleanup removes them.
func (s *Server) resolveAudio(c *gin.Context) (string, func(), error) {
	if path := c.Query("path"); path != "" {
		return path, nil, nil
	}
	if path := c.PostForm("path"); path != "" {
		return path, nil, nil
	}

	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, errMissingAudio
	}

	name := uuid.New().String() + filepath.Ext(header.Filename)
	dest := filepath.Join(s.uploadDir, name)
	if err := c.SaveUploadedFile(header, dest); err != nil {
		return "", nil, err
	}

	s.logger.Debug("stored uploaded audio",
		zap.String("original", header.Filename),
		zap.String("path", dest))

	cleanup := func() {
		if err := os.Remove(dest); err != nil {
			s.logger.Warn("failed to remove uploaded audio", zap.String("path", dest), zap.Error(err))
		}
	}
	return dest, cleanup, nil
}
