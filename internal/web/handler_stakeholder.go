package web

import (
	"net/http"

	"github.com/vbonduro/propertypassport/internal/domain"
	"github.com/vbonduro/propertypassport/internal/service"
)

func (s *Server) handleListStakeholders(w http.ResponseWriter, r *http.Request) {
	propertyID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.services.Stakeholders.ListStakeholders(r.Context(), callerFrom(r.Context()), propertyID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, list)
}

func (s *Server) handleAddStakeholder(w http.ResponseWriter, r *http.Request) {
	propertyID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in service.StakeholderInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	role, err := s.services.Stakeholders.AddStakeholder(r.Context(), callerFrom(r.Context()), propertyID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, role)
}

func (s *Server) handleUpdateStakeholder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in service.StakeholderInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	role, err := s.services.Stakeholders.UpdateStakeholder(r.Context(), callerFrom(r.Context()), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, role)
}

func (s *Server) handleRemoveStakeholder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.services.Stakeholders.RemoveStakeholder(r.Context(), callerFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, nil)
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	propertyID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.services.Invitations.ListInvitations(r.Context(), callerFrom(r.Context()), propertyID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, list)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	propertyID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in service.InviteInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	sent, err := s.services.Invitations.Invite(r.Context(), callerFrom(r.Context()), propertyID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, sent)
}

func (s *Server) handleRevokeInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.services.Invitations.RevokeInvitation(r.Context(), callerFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, nil)
}

type acceptRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var in acceptRequest
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if in.Token == "" {
		s.fail(w, r, domain.Invalid("token is required"))
		return
	}
	inv, err := s.services.Invitations.AcceptInvitation(r.Context(), callerFrom(r.Context()), in.Token)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, inv)
}
