package server

import (
	stderrors "errors"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/idsheet/pkg/crop"
	"github.com/matzehuels/idsheet/pkg/errors"
	"github.com/matzehuels/idsheet/pkg/pipeline"
	"github.com/matzehuels/idsheet/pkg/session"
	"github.com/matzehuels/idsheet/pkg/sink"
)

// uploadField is the multipart field carrying the source image.
const uploadField = "image"

// Region is a crop box in source image pixels.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func regionOf(r image.Rectangle) Region {
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename,omitempty"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Aspect    float64   `json:"aspect"`
	Region    Region    `json:"region"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newSessionResponse(sess *session.Session) sessionResponse {
	snap := sess.Snapshot()
	return sessionResponse{
		ID:        snap.ID,
		Filename:  snap.Filename,
		Width:     snap.Width,
		Height:    snap.Height,
		Aspect:    snap.Aspect,
		Region:    regionOf(snap.Region),
		CreatedAt: snap.CreatedAt,
		ExpiresAt: snap.ExpiresAt,
	}
}

// createSession starts a crop session from a multipart upload. The optional
// "photo" form field picks the photo size whose aspect ratio locks the crop box.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	src, filename, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	opts := s.options()
	if photo := r.FormValue("photo"); photo != "" {
		opts.Photo = photo
	}
	aspect, err := photoAspect(opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sess, err := session.New(src, aspect, s.cfg.SessionTTL)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sess.Filename = filename
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.respondError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "store session"))
		return
	}

	s.logger.Debug("session created", "id", sess.ID, "source", src.Bounds().Size(), "aspect", aspect)
	respondJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// replaceImage swaps the session's source image. The crop box resets.
func (s *Server) replaceImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	src, filename, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := sess.Replace(src, filename); err != nil {
		s.respondError(w, r, err)
		return
	}
	if !s.saveSession(w, r, sess) {
		return
	}
	respondJSON(w, http.StatusOK, newSessionResponse(sess))
}

// cropRequest moves the crop box and optionally re-locks its aspect ratio.
type cropRequest struct {
	Photo  string  `json:"photo,omitempty"`
	Region *Region `json:"region,omitempty"`
}

func (s *Server) updateCrop(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	var req cropRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	if req.Photo != "" {
		opts := s.options()
		opts.Photo = req.Photo
		aspect, err := photoAspect(opts)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if err := sess.SetAspect(aspect); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if req.Region != nil {
		if err := sess.SetRegion(req.Region.Rect()); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if !s.saveSession(w, r, sess) {
		return
	}
	respondJSON(w, http.StatusOK, newSessionResponse(sess))
}

// sheetRequest selects the layout and output of a rendered sheet.
type sheetRequest struct {
	pipeline.Options
	Format string `json:"format,omitempty"`
}

// sheet renders the session's crop into a print sheet and sends it as a
// download.
func (s *Server) sheet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	req := sheetRequest{Options: s.options()}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	format := sink.FormatPNG
	if req.Format != "" {
		f, err := sink.ParseFormat(req.Format)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		format = f
	}
	opts := req.Options
	opts.Formats = []string{string(format)}

	if err := opts.ValidateForPlan(); err != nil {
		s.respondError(w, r, err)
		return
	}
	px, err := pipeline.Convert(opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// Crop refits the region when this photo size has another aspect ratio.
	var unit image.Image
	if format.Raster() {
		if unit, err = sess.Crop(px.Photo.Width, px.Photo.Height); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	res, err := s.runner.Execute(r.Context(), opts, unit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	data := res.Artifacts[string(format)]

	h := w.Header()
	h.Set("Content-Type", format.ContentType())
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sink.Filename(format)))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("X-Placements", strconv.Itoa(res.Stats.Placements))
	if res.Empty() {
		h.Set("X-Warning", emptyWarning)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// loadSession fetches the session named in the URL and extends its lifetime.
// On failure it writes the error response and returns false.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	if err := s.sessions.Touch(r.Context(), sess, s.cfg.SessionTTL); err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, sess *session.Session) bool {
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.respondError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "store session"))
		return false
	}
	return true
}

// readUpload decodes the uploaded source image, bounded by the upload limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (image.Image, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, "", errors.New(errors.ErrCodeInvalidInput, "upload exceeds %d bytes", s.cfg.MaxUploadBytes)
		}
		return nil, "", errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid multipart form")
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeMissingUnitImage, err, "missing %q file field", uploadField)
	}
	defer file.Close()

	if err := errors.ValidateUploadFilename(header.Filename); err != nil {
		return nil, "", err
	}
	img, err := crop.Decode(file)
	if err != nil {
		return nil, "", err
	}
	return img, header.Filename, nil
}

// photoAspect resolves the photo size in opts and returns its pixel aspect
// ratio at the configured resolution.
func photoAspect(opts pipeline.Options) (float64, error) {
	if err := opts.ValidateForPlan(); err != nil {
		return 0, err
	}
	px, err := pipeline.Convert(opts)
	if err != nil {
		return 0, err
	}
	return crop.Aspect(px.Photo.Width, px.Photo.Height)
}
