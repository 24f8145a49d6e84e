package pvdata

// Undefined is the selector of a union without a value.
const Undefined = -1

// PVUnion holds at most one value: one of the union's declared fields, or
// for a variant union a value of any type.
type PVUnion struct {
	pvBase
	field    *Union
	selector int
	value    PVField
}

func NewPVUnion(f *Union) *PVUnion {
	pvu := newPVUnion(f)
	computeOffsets(pvu, 0)
	return pvu
}

func newPVUnion(f *Union) *PVUnion {
	return &PVUnion{field: f, selector: Undefined}
}

func (pvu *PVUnion) Field() Field    { return pvu.field }
func (pvu *PVUnion) Union() *Union   { return pvu.field }
func (pvu *PVUnion) IsVariant() bool { return pvu.field.IsVariant() }
func (pvu *PVUnion) String() string  { return Dump(pvu) }

// Selector returns the index of the selected field. It is always Undefined
// for variant unions.
func (pvu *PVUnion) Selector() int { return pvu.selector }

// Value returns the current value, or nil.
func (pvu *PVUnion) Value() PVField { return pvu.value }

// SelectedName returns the name of the selected field, or "" when nothing is
// selected or the union is a variant.
func (pvu *PVUnion) SelectedName() string {
	if pvu.selector == Undefined {
		return ""
	}
	return pvu.field.names[pvu.selector]
}

func (pvu *PVUnion) SetImmutable() {
	pvu.immutable = true
	if pvu.value != nil {
		pvu.value.SetImmutable()
	}
}

// Select switches to the field at index and returns its value. Selecting the
// current field keeps its value, any other field starts from defaults.
// Undefined clears the union. Variant unions accept only Undefined.
func (pvu *PVUnion) Select(index int) (PVField, error) {
	if pvu.immutable {
		return nil, immutableErr(pvu)
	}
	variant := pvu.IsVariant()
	if variant && index != Undefined {
		return nil, fieldErrf(pvu, ErrInvalidArgument, "cannot select %d in a variant union", index)
	}
	if index == pvu.selector && !variant {
		return pvu.value, nil
	}
	if index == Undefined {
		pvu.selector, pvu.value = Undefined, nil
		return nil, nil
	}
	if index < 0 || index >= len(pvu.field.fields) {
		return nil, fieldErrf(pvu, ErrInvalidArgument, "index %d out of bounds", index)
	}
	pvu.selector = index
	pvu.value = NewPVField(pvu.field.fields[index])
	pin(pvu.value)
	return pvu.value, nil
}

func (pvu *PVUnion) SelectName(name string) (PVField, error) {
	i, err := pvu.indexOf(name)
	if err != nil {
		return nil, err
	}
	return pvu.Select(i)
}

func (pvu *PVUnion) indexOf(name string) (int, error) {
	i := -1
	if !pvu.IsVariant() {
		i = pvu.field.FieldIndex(name)
	}
	if i < 0 {
		return 0, fieldErrf(pvu, ErrFieldNotFound, "no field %q", name)
	}
	return i, nil
}

// Set selects index and installs pv as its value, then calls PostPut. pv
// must be a root described by the selected field; Undefined requires a nil
// pv. Variant unions accept only Undefined, use SetVariant instead.
func (pvu *PVUnion) Set(index int, pv PVField) error {
	if pvu.immutable {
		return immutableErr(pvu)
	}
	if pvu.IsVariant() {
		if index != Undefined {
			return fieldErrf(pvu, ErrInvalidArgument, "cannot select %d in a variant union", index)
		}
		return pvu.SetVariant(pv)
	}
	switch {
	case index == Undefined:
		if pv != nil {
			return fieldErrf(pvu, ErrInvalidArgument, "value given for undefined selector")
		}
	case index < 0 || index >= len(pvu.field.fields):
		return fieldErrf(pvu, ErrInvalidArgument, "index %d out of bounds", index)
	case pv == nil:
		return fieldErrf(pvu, ErrInvalidArgument, "nil value for %s", pvu.field.names[index])
	case !Equal(pv.Field(), pvu.field.fields[index]):
		return fieldErrf(pvu, ErrInvalidArgument, "%s value does not match %s %s", pv.Field().ID(), pvu.field.fields[index].ID(), pvu.field.names[index])
	case pv.Parent() != nil:
		return fieldErrf(pvu, ErrInvalidArgument, "value belongs to %s", pv.Parent().FullName())
	}
	if pv != nil {
		pin(pv)
	}
	pvu.selector, pvu.value = index, pv
	pvu.PostPut()
	return nil
}

func (pvu *PVUnion) SetName(name string, pv PVField) error {
	i, err := pvu.indexOf(name)
	if err != nil {
		return err
	}
	return pvu.Set(i, pv)
}

// SetVariant installs any root value into a variant union, nil clears it.
func (pvu *PVUnion) SetVariant(pv PVField) error {
	if pvu.immutable {
		return immutableErr(pvu)
	}
	if !pvu.IsVariant() {
		return fieldErrf(pvu, ErrInvalidArgument, "not a variant union")
	}
	if pv != nil && pv.Parent() != nil {
		return fieldErrf(pvu, ErrInvalidArgument, "value belongs to %s", pv.Parent().FullName())
	}
	pvu.selector, pvu.value = Undefined, pv
	pvu.PostPut()
	return nil
}

// SelectField makes a variant union hold a fresh value of type f, reusing
// the current value when it already has that type.
func (pvu *PVUnion) SelectField(f Field) (PVField, error) {
	if pvu.immutable {
		return nil, immutableErr(pvu)
	}
	if !pvu.IsVariant() {
		return nil, fieldErrf(pvu, ErrInvalidArgument, "not a variant union")
	}
	if f == nil {
		pvu.value = nil
		return nil, nil
	}
	if pvu.value == nil || !Equal(pvu.value.Field(), f) {
		pvu.value = NewPVField(f)
	}
	return pvu.value, nil
}
