package hwio

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type bankedReg struct {
	offset uint32
	regPtr any
}

type regTag struct {
	offset    uint32
	hasOffset bool
	bank      int
	size      uint32
	vsize     uint32
	rwmask    uint32
	hasRwmask bool
	reset     uint32
	readonly  bool
	writeonly bool
	rcb       string
	wcb       string
	pcb       string
}

func parseHex(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	return uint32(v), err
}

func parseRegTag(fieldName, tag string) (regTag, error) {
	rt := regTag{}
	for _, opt := range strings.Split(tag, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		key, val, hasVal := strings.Cut(opt, "=")
		var err error
		switch key {
		case "offset":
			rt.offset, err = parseHex(val)
			rt.hasOffset = true
		case "bank":
			var b uint32
			b, err = parseHex(val)
			rt.bank = int(b)
		case "size":
			rt.size, err = parseHex(val)
		case "vsize":
			rt.vsize, err = parseHex(val)
		case "rwmask":
			rt.rwmask, err = parseHex(val)
			rt.hasRwmask = true
		case "reset":
			rt.reset, err = parseHex(val)
		case "readonly":
			rt.readonly = true
		case "writeonly":
			rt.writeonly = true
		case "rcb":
			rt.rcb = "Read" + strings.ToUpper(fieldName)
			if hasVal {
				rt.rcb = val
			}
		case "wcb":
			rt.wcb = "Write" + strings.ToUpper(fieldName)
			if hasVal {
				rt.wcb = val
			}
		case "pcb":
			rt.pcb = "Peek" + strings.ToUpper(fieldName)
			if hasVal {
				rt.pcb = val
			}
		default:
			return rt, fmt.Errorf("hwio: unknown tag option %q in field %s", opt, fieldName)
		}
		if err != nil {
			return rt, fmt.Errorf("hwio: invalid tag option %q in field %s: %v", opt, fieldName, err)
		}
	}
	return rt, nil
}

func bankFields(bank any) (reflect.Value, []reflect.StructField, error) {
	v := reflect.ValueOf(bank)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, nil, fmt.Errorf("hwio: bank must be a pointer to struct, got %T", bank)
	}
	st := v.Elem().Type()
	fields := make([]reflect.StructField, 0, st.NumField())
	for i := 0; i < st.NumField(); i++ {
		fields = append(fields, st.Field(i))
	}
	return v, fields, nil
}

func bankGetRegs(bank any, bankNum int) ([]bankedReg, error) {
	v, fields, err := bankFields(bank)
	if err != nil {
		return nil, err
	}

	var regs []bankedReg
	for _, f := range fields {
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		rt, err := parseRegTag(f.Name, tag)
		if err != nil {
			return nil, err
		}
		if !rt.hasOffset || rt.bank != bankNum {
			continue
		}
		regs = append(regs, bankedReg{
			offset: rt.offset,
			regPtr: v.Elem().FieldByIndex(f.Index).Addr().Interface(),
		})
	}
	return regs, nil
}

func lookupMethod(bank reflect.Value, name string, proto any) (reflect.Value, error) {
	m := bank.MethodByName(name)
	if !m.IsValid() {
		return m, fmt.Errorf("hwio: callback method %s not found on %T", name, bank.Interface())
	}
	if m.Type() != reflect.TypeOf(proto) {
		return m, fmt.Errorf("hwio: callback %s has signature %s, want %s",
			name, m.Type(), reflect.TypeOf(proto))
	}
	return m, nil
}

// InitRegs initializes all the hwio-tagged fields of a bank structure:
// names, reset values, read/write masks, access flags, and the Read/Write/
// Peek callbacks bound by method name.
func InitRegs(bank any) error {
	v, fields, err := bankFields(bank)
	if err != nil {
		return err
	}

	for _, f := range fields {
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		rt, err := parseRegTag(f.Name, tag)
		if err != nil {
			return err
		}

		var flags RWFlags
		if rt.readonly {
			flags |= ReadOnlyFlag
		}
		if rt.writeonly {
			flags |= WriteOnlyFlag
		}

		switch reg := v.Elem().FieldByIndex(f.Index).Addr().Interface().(type) {
		case *Reg32:
			reg.Name = f.Name
			reg.Value = rt.reset
			reg.Flags = flags
			if rt.hasRwmask {
				reg.RoMask = ^rt.rwmask
			}
			if rt.rcb != "" {
				m, err := lookupMethod(v, rt.rcb, (func(uint32) uint32)(nil))
				if err != nil {
					return err
				}
				reg.ReadCb = m.Interface().(func(uint32) uint32)
			}
			if rt.wcb != "" {
				m, err := lookupMethod(v, rt.wcb, (func(uint32, uint32))(nil))
				if err != nil {
					return err
				}
				reg.WriteCb = m.Interface().(func(uint32, uint32))
			}
			if rt.pcb != "" {
				m, err := lookupMethod(v, rt.pcb, (func(uint32) uint32)(nil))
				if err != nil {
					return err
				}
				reg.PeekCb = m.Interface().(func(uint32) uint32)
			}

		case *Mem:
			reg.Name = f.Name
			if reg.Data == nil && rt.size > 0 {
				reg.Data = make([]byte, rt.size)
			}
			if reg.VSize == 0 {
				reg.VSize = len(reg.Data)
				if rt.vsize > 0 {
					reg.VSize = int(rt.vsize)
				}
			}

		case *Device:
			reg.Name = f.Name
			reg.Size = int(rt.size)
			reg.Flags = flags
			if rt.rcb != "" {
				m, err := lookupMethod(v, rt.rcb, (func(uint32) uint32)(nil))
				if err != nil {
					return err
				}
				reg.ReadCb = m.Interface().(func(uint32) uint32)
			}
			if rt.wcb != "" {
				m, err := lookupMethod(v, rt.wcb, (func(uint32, uint32))(nil))
				if err != nil {
					return err
				}
				reg.WriteCb = m.Interface().(func(uint32, uint32))
			}
			if rt.pcb != "" {
				m, err := lookupMethod(v, rt.pcb, (func(uint32) uint32)(nil))
				if err != nil {
					return err
				}
				reg.PeekCb = m.Interface().(func(uint32) uint32)
			}

		default:
			return fmt.Errorf("hwio: field %s has invalid type %s", f.Name, f.Type)
		}
	}
	return nil
}

// MustInitRegs is like InitRegs but panics on error. Bank layout errors are
// programming mistakes, not runtime conditions.
func MustInitRegs(bank any) {
	if err := InitRegs(bank); err != nil {
		panic(err)
	}
}
