package v4l2

import "fmt"

// ControlType is the kind of value a control holds.
type ControlType uint32

// Control types.
const (
	ControlTypeInteger     ControlType = 1
	ControlTypeBoolean     ControlType = 2
	ControlTypeMenu        ControlType = 3
	ControlTypeButton      ControlType = 4
	ControlTypeInteger64   ControlType = 5
	ControlTypeCtrlClass   ControlType = 6
	ControlTypeString      ControlType = 7
	ControlTypeBitmask     ControlType = 8
	ControlTypeIntegerMenu ControlType = 9
)

func (t ControlType) String() string {
	switch t {
	case ControlTypeInteger:
		return "integer"
	case ControlTypeBoolean:
		return "boolean"
	case ControlTypeMenu:
		return "menu"
	case ControlTypeButton:
		return "button"
	case ControlTypeInteger64:
		return "integer64"
	case ControlTypeCtrlClass:
		return "class"
	case ControlTypeString:
		return "string"
	case ControlTypeBitmask:
		return "bitmask"
	case ControlTypeIntegerMenu:
		return "integer_menu"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

// ControlInfo is the static description of a control.
type ControlInfo struct {
	ID      ControlID
	Name    string
	Type    ControlType
	Minimum int32
	Maximum int32
	Step    int32
	Default int32
	Flags   uint32
}

// Disabled reports whether the driver marks the control permanently disabled.
func (c ControlInfo) Disabled() bool { return c.Flags&ctrlFlagDisabled != 0 }

// ReadOnly reports whether the control can only be read.
func (c ControlInfo) ReadOnly() bool { return c.Flags&ctrlFlagReadOnly != 0 }

// Inactive reports whether the control is currently ignored, for example a
// manual exposure time while auto exposure is on.
func (c ControlInfo) Inactive() bool { return c.Flags&ctrlFlagInactive != 0 }

// DeviceValue is a snapshot of a control's range together with its current
// value. It is produced by a query and never cached.
type DeviceValue struct {
	ControlInfo
	Current int32
}

// QueryControl returns the range and default of a control. A driver that
// does not implement the control answers with EINVAL.
func (d *Device) QueryControl(id ControlID) (ControlInfo, error) {
	q := queryCtrl{id: uint32(id)}
	if err := d.ch.Execute(ReqQueryCtrl, &q); err != nil {
		return ControlInfo{}, &ControlError{Control: id, Err: err}
	}
	return ControlInfo{
		ID:      ControlID(q.id),
		Name:    cstr(q.name[:]),
		Type:    ControlType(q.typ),
		Minimum: q.minimum,
		Maximum: q.maximum,
		Step:    q.step,
		Default: q.defaultValue,
		Flags:   q.flags,
	}, nil
}

// GetControl reads the current value of a control.
func (d *Device) GetControl(id ControlID) (int32, error) {
	c := control{id: uint32(id)}
	if err := d.ch.Execute(ReqGetCtrl, &c); err != nil {
		return 0, &ControlError{Control: id, Err: err}
	}
	return c.value, nil
}

// SetControl writes a control value. The returned value is what the driver
// stored, which may be clamped.
func (d *Device) SetControl(id ControlID, value int32) (int32, error) {
	c := control{id: uint32(id), value: value}
	if err := d.ch.Execute(ReqSetCtrl, &c); err != nil {
		return 0, &ControlError{Control: id, Err: err}
	}
	d.logger.Debug("control set", "control", id, "value", c.value)
	return c.value, nil
}

// DeviceValue returns the range, default and current value of a control.
func (d *Device) DeviceValue(id ControlID) (DeviceValue, error) {
	info, err := d.QueryControl(id)
	if err != nil {
		return DeviceValue{}, err
	}
	cur, err := d.GetControl(id)
	if err != nil {
		return DeviceValue{}, err
	}
	return DeviceValue{ControlInfo: info, Current: cur}, nil
}
