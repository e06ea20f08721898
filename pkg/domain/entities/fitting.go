package entities

import "fmt"

// FittingID identifies a requirement template (ship fitting)
type FittingID int64

// DoctrineID identifies a doctrine group
type DoctrineID int64

// Component is a single required line of a fitting
type Component struct {
	TypeID   TypeID
	Quantity Quantity
}

// Fitting represents a requirement template: a hull plus the items it must carry
type Fitting struct {
	ID         FittingID
	Name       string
	HullTypeID TypeID
	Components []Component
}

// NewFitting creates a validated Fitting
func NewFitting(id FittingID, name string, hullTypeID TypeID, components []Component) (*Fitting, error) {
	if id <= 0 {
		return nil, fmt.Errorf("fitting id must be positive, got %d", id)
	}
	if name == "" {
		return nil, fmt.Errorf("fitting name cannot be empty")
	}
	if hullTypeID <= 0 {
		return nil, fmt.Errorf("hull type id must be positive, got %d", hullTypeID)
	}
	for i, c := range components {
		if c.TypeID <= 0 {
			return nil, fmt.Errorf("component %d: type id must be positive, got %d", i, c.TypeID)
		}
		if c.Quantity <= 0 {
			return nil, fmt.Errorf("component %d: quantity must be positive, got %d", i, c.Quantity)
		}
	}

	return &Fitting{
		ID:         id,
		Name:       name,
		HullTypeID: hullTypeID,
		Components: components,
	}, nil
}

// Requirements returns the component multiset with repeated types summed
func (f *Fitting) Requirements() map[TypeID]Quantity {
	reqs := make(map[TypeID]Quantity, len(f.Components))
	for _, c := range f.Components {
		if c.Quantity <= 0 {
			continue
		}
		reqs[c.TypeID] += c.Quantity
	}
	return reqs
}

// TypeIDs returns every type referenced by the fitting, hull included
func (f *Fitting) TypeIDs() []TypeID {
	ids := make([]TypeID, 0, len(f.Components)+1)
	ids = append(ids, f.HullTypeID)
	for _, c := range f.Components {
		ids = append(ids, c.TypeID)
	}
	return ids
}

// Doctrine is a named collection of fittings used for display grouping
type Doctrine struct {
	ID         DoctrineID
	Name       string
	FittingIDs []FittingID
}

// NewDoctrine creates a validated Doctrine
func NewDoctrine(id DoctrineID, name string, fittingIDs []FittingID) (*Doctrine, error) {
	if id <= 0 {
		return nil, fmt.Errorf("doctrine id must be positive, got %d", id)
	}
	if name == "" {
		return nil, fmt.Errorf("doctrine name cannot be empty")
	}

	return &Doctrine{
		ID:         id,
		Name:       name,
		FittingIDs: fittingIDs,
	}, nil
}

// Contains reports whether the doctrine lists the fitting
func (d *Doctrine) Contains(id FittingID) bool {
	for _, fid := range d.FittingIDs {
		if fid == id {
			return true
		}
	}
	return false
}
