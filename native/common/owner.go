package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotOwner             = errors.New("owner: caller is not the owner")
	ErrNotProposedOwner     = errors.New("owner: caller is not the proposed owner")
	ErrOwnerAbolished       = errors.New("owner: role has been abolished")
	ErrNoProposedOwner      = errors.New("owner: no owner proposal pending")
	ErrOwnerNotInitialized  = errors.New("owner: role not initialized")
	ErrInvalidProposedOwner = errors.New("owner: proposed owner must differ from the current owner")
)

// OwnerState is the persisted owner role of a module. The role moves through
// Initialized, Initialized with a pending proposal, and Abolished.
type OwnerState struct {
	Owner     string
	Proposed  string
	Abolished bool
}

// NewOwnerState initializes the role with owner.
func NewOwnerState(owner string) OwnerState {
	return OwnerState{Owner: strings.TrimSpace(owner)}
}

func (s OwnerState) Initialized() bool { return !s.Abolished && s.Owner != "" }

func (s OwnerState) IsOwner(addr string) bool {
	return s.Initialized() && addr != "" && s.Owner == addr
}

// AssertOwner returns ErrNotOwner unless addr currently owns the module.
func (s OwnerState) AssertOwner(addr string) error {
	if s.Abolished {
		return ErrOwnerAbolished
	}
	if !s.IsOwner(addr) {
		return ErrNotOwner
	}
	return nil
}

// OwnerUpdate is a transition of the owner state machine.
type OwnerUpdate interface {
	isOwnerUpdate()
	Name() string
}

type ProposeNewOwner struct {
	Proposed string `json:"proposed"`
}

type ClearProposed struct{}

type AcceptProposed struct{}

type AbolishOwnerRole struct{}

func (ProposeNewOwner) isOwnerUpdate()  {}
func (ClearProposed) isOwnerUpdate()    {}
func (AcceptProposed) isOwnerUpdate()   {}
func (AbolishOwnerRole) isOwnerUpdate() {}

func (ProposeNewOwner) Name() string  { return "propose_new_owner" }
func (ClearProposed) Name() string    { return "clear_proposed" }
func (AcceptProposed) Name() string   { return "accept_proposed" }
func (AbolishOwnerRole) Name() string { return "abolish_owner_role" }

// Apply executes update on behalf of sender and returns the next state. The
// receiver is left untouched.
func (s OwnerState) Apply(sender string, update OwnerUpdate) (OwnerState, error) {
	if s.Abolished {
		return s, ErrOwnerAbolished
	}
	if s.Owner == "" {
		return s, ErrOwnerNotInitialized
	}
	next := s
	switch u := update.(type) {
	case ProposeNewOwner:
		if err := s.AssertOwner(sender); err != nil {
			return s, err
		}
		proposed := strings.TrimSpace(u.Proposed)
		if proposed == "" || proposed == s.Owner {
			return s, ErrInvalidProposedOwner
		}
		next.Proposed = proposed
	case ClearProposed:
		if err := s.AssertOwner(sender); err != nil {
			return s, err
		}
		next.Proposed = ""
	case AcceptProposed:
		if s.Proposed == "" {
			return s, ErrNoProposedOwner
		}
		if sender != s.Proposed {
			return s, ErrNotProposedOwner
		}
		next.Owner = s.Proposed
		next.Proposed = ""
	case AbolishOwnerRole:
		if err := s.AssertOwner(sender); err != nil {
			return s, err
		}
		next = OwnerState{Abolished: true}
	default:
		return s, fmt.Errorf("owner: unsupported update %T", update)
	}
	return next, nil
}

type ownerUpdateJSON struct {
	Type     string `json:"type"`
	Proposed string `json:"proposed,omitempty"`
}

// MarshalOwnerUpdate renders an update with its "type" discriminator.
func MarshalOwnerUpdate(update OwnerUpdate) ([]byte, error) {
	out := ownerUpdateJSON{Type: update.Name()}
	if p, ok := update.(ProposeNewOwner); ok {
		out.Proposed = p.Proposed
	}
	return json.Marshal(out)
}

// UnmarshalOwnerUpdate decodes the form produced by MarshalOwnerUpdate.
func UnmarshalOwnerUpdate(data []byte) (OwnerUpdate, error) {
	var in ownerUpdateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("owner: decode update: %w", err)
	}
	switch in.Type {
	case "propose_new_owner":
		return ProposeNewOwner{Proposed: in.Proposed}, nil
	case "clear_proposed":
		return ClearProposed{}, nil
	case "accept_proposed":
		return AcceptProposed{}, nil
	case "abolish_owner_role":
		return AbolishOwnerRole{}, nil
	default:
		return nil, fmt.Errorf("owner: unknown update %q", in.Type)
	}
}
