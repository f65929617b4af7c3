package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/nconklindev/sheetdiff/internal/chat"
	"github.com/nconklindev/sheetdiff/internal/diff"
	"github.com/nconklindev/sheetdiff/internal/loader"
	"github.com/nconklindev/sheetdiff/internal/log"
	"github.com/nconklindev/sheetdiff/internal/report"
)

var (
	errMissingFile = errors.New("both a source and a target file are required")
	errTooLarge    = errors.New("file is too large")
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, http.StatusOK, "")
}

func (s *Server) renderIndex(w http.ResponseWriter, status int, msg string) {
	s.renderTemplate(w, status, "index.html", indexView{
		Error:         msg,
		MaxUpload:     humanize.Bytes(uint64(s.opts.MaxUploadSize)),
		Assistant:     s.opts.Assistant != nil,
		SessionsInUse: s.store.Len(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

type upload struct {
	file   multipart.File
	header *multipart.FileHeader
}

func (s *Server) formFile(r *http.Request, field string) (*upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errMissingFile
		}
		return nil, err
	}
	if header.Size > s.opts.MaxUploadSize {
		file.Close()
		return nil, fmt.Errorf("%w: %s is %s, the limit is %s", errTooLarge, header.Filename,
			humanize.Bytes(uint64(header.Size)), humanize.Bytes(uint64(s.opts.MaxUploadSize)))
	}
	if !loader.SupportedExtension(header.Filename) {
		file.Close()
		return nil, fmt.Errorf("%w: %s (only .csv, .xlsx and .xlsm are accepted)", loader.ErrUnsupportedFormat, header.Filename)
	}
	return &upload{file: file, header: header}, nil
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.opts.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.renderIndex(w, http.StatusRequestEntityTooLarge, "The upload is too large.")
			return
		}
		s.renderIndex(w, http.StatusBadRequest, "Could not read the upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	src, err := s.formFile(r, "source")
	if err != nil {
		s.renderIndex(w, http.StatusBadRequest, err.Error())
		return
	}
	defer src.file.Close()

	tgt, err := s.formFile(r, "target")
	if err != nil {
		s.renderIndex(w, http.StatusBadRequest, err.Error())
		return
	}
	defer tgt.file.Close()

	source, target, err := loader.ReadPair(r.Context(),
		loader.Input{Name: src.header.Filename, Reader: src.file},
		loader.Input{Name: tgt.header.Filename, Reader: tgt.file},
		s.opts.Loader,
	)
	if err != nil {
		log.WithError(err).Warn("load failed")
		s.renderIndex(w, http.StatusBadRequest, "Could not load the files: "+err.Error())
		return
	}

	res, err := diff.Compare(source, target, s.opts.Diff...)
	if err != nil {
		s.renderIndex(w, http.StatusBadRequest, "Could not compare the files: "+err.Error())
		return
	}

	sess := s.store.Add(&Session{
		SourceName: filepath.Base(src.header.Filename),
		TargetName: filepath.Base(tgt.header.Filename),
		SourceSize: src.header.Size,
		TargetSize: tgt.header.Size,
		Subject:    chat.Subject{Source: source, Target: target, Result: res},
	})

	log.WithFields(map[string]interface{}{
		"session":    sess.ID,
		"source":     sess.SourceName,
		"target":     sess.TargetName,
		"mismatches": len(res.Mismatches),
	}).Info("comparison created")

	http.Redirect(w, r, "/sessions/"+sess.ID, http.StatusSeeOther)
}

// session loads the session named in the URL or writes a 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.renderTemplate(w, http.StatusOK, "session.html", newSessionView(sess, s.opts.Assistant != nil))
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	back := "/sessions/" + sess.ID

	_, err := sess.ask(r.Context(), s.opts.Assistant, r.FormValue("query"))

	switch {
	case err == nil:
	case errors.Is(err, chat.ErrEmptyQuery):
		sess.setNotice("Please enter a question.")
	case errors.Is(err, chat.ErrAssistantUnavailable):
		sess.setNotice("The assistant is not configured. Set OPENAI_API_KEY to enable it.")
	default:
		log.WithError(err).WithField("session", sess.ID).Warn("ask failed")
		sess.setNotice("An error occurred: " + err.Error())
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.clear()
	http.Redirect(w, r, "/sessions/"+sess.ID, http.StatusSeeOther)
}

func (s *Server) handleMismatches(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	mismatches := sess.Subject.Result.Mismatches
	if mismatches == nil {
		mismatches = []diff.Mismatch{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(mismatches); err != nil {
		log.WithError(err).Warn("encode mismatches")
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	name := filepath.Base(report.DefaultPath(sess.SourceName, ".xlsx"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := report.WriteXLSX(w, sess.Subject.Result); err != nil {
		log.WithError(err).Error("write report")
	}
}
