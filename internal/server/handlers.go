package server

import (
	"fmt"
	"net/http"
	"strings"

	"algoforce/internal/domain"
	"algoforce/internal/services"
)

// contactRequest is the body of the public contact routes. The channel is
// read from "phone" or "email" depending on the verification channel, with
// "contactChannel" accepted for either.
type contactRequest struct {
	Name           string `json:"name"`
	Company        string `json:"company"`
	Role           string `json:"role"`
	Problem        string `json:"problem"`
	InquiryType    string `json:"inquiryType"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	ContactChannel string `json:"contactChannel"`
	OTP            string `json:"otp"`
}

func (b *contactRequest) channel(kind domain.ChannelKind) string {
	if strings.TrimSpace(b.ContactChannel) != "" {
		return b.ContactChannel
	}
	if kind == domain.ChannelEmail {
		return b.Email
	}
	return b.Phone
}

func (b *contactRequest) profile() domain.Profile {
	return domain.Profile{
		Name:        b.Name,
		Company:     b.Company,
		Role:        b.Role,
		Problem:     b.Problem,
		InquiryType: domain.InquiryType(b.InquiryType),
		Email:       b.Email,
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, s.svc.Health.Check(r.Context()))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Health.Ready(r.Context())
	if err != nil {
		writeJSON(r.Context(), w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, status)
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var body contactRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	kind := s.svc.Contacts.ChannelKind()
	err := s.svc.Contacts.RequestCode(r.Context(), services.SubmitInput{
		Channel: body.channel(kind),
		Profile: body.profile(),
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, messageResponse{
		Success: true,
		Message: fmt.Sprintf("OTP sent successfully. Please check your %s.", kind),
	})
}

func (s *Server) handleVerifyAndSave(w http.ResponseWriter, r *http.Request) {
	var body contactRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	profile := body.profile()
	s.verify(w, r, &body, &profile)
}

// handleVerifyOTP only reads the channel and code
func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body contactRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	s.verify(w, r, &body, nil)
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request, body *contactRequest, profile *domain.Profile) {
	res, err := s.svc.Contacts.VerifyAndSave(r.Context(), services.VerifyInput{
		Channel: body.channel(s.svc.Contacts.ChannelKind()),
		Code:    body.OTP,
		Profile: profile,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusCreated, verifyResponse{
		Success:   true,
		Message:   "Contact verified successfully. We will get back to you soon!",
		ContactID: res.ContactID,
		Name:      res.Name,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.svc.Contacts.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, listResponse{Success: true, Count: len(contacts), Data: contacts})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Contacts.Get(r.Context(), s.mux.Vars(r)["id"])
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, contactResponse{Success: true, Data: c})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	c, err := s.svc.Contacts.UpdateStatus(r.Context(), s.mux.Vars(r)["id"], body.Status)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, contactResponse{
		Success: true,
		Message: "Contact status updated successfully",
		Data:    c,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	res, err := s.svc.Auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, loginResponse{Success: true, Data: res})
}
