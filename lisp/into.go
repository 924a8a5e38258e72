package lisp

import "fmt"

// Add converts a Go value into a Lisp value, allocating if needed.
// Supported: nil, bool, the integer types, float32/float64, string,
// []byte (unibyte string), []Gc[Object] (vector), any Gc[K], and Word.
func (cx *Context) Add(v any) (Gc[Object], error) {
	switch x := v.(type) {
	case nil:
		return Nil.Object(), nil
	case bool:
		return Bool(x).Object(), nil
	case int:
		return intObject(int64(x))
	case int8:
		return intObject(int64(x))
	case int16:
		return intObject(int64(x))
	case int32:
		return intObject(int64(x))
	case int64:
		return intObject(x)
	case uint8:
		return intObject(int64(x))
	case uint16:
		return intObject(int64(x))
	case uint32:
		return intObject(int64(x))
	case uint:
		if uint64(x) > uint64(MaxFixnum) {
			return Nil.Object(), &RangeError{Value: int64(x)}
		}
		return intObject(int64(x))
	case uint64:
		if x > uint64(MaxFixnum) {
			return Nil.Object(), &RangeError{Value: int64(x)}
		}
		return intObject(int64(x))
	case float32:
		return cx.NewFloat(float64(x)).Object(), nil
	case float64:
		return cx.NewFloat(x).Object(), nil
	case string:
		return cx.NewString(x).Object(), nil
	case []byte:
		return cx.NewUnibyteString(x).Object(), nil
	case []Gc[Object]:
		return cx.NewVec(x...).Object(), nil
	case Word:
		cx.validate(x)
		return Gc[Object](x), nil
	case Gc[Object]:
		return x, nil
	case Gc[Int]:
		return x.Object(), nil
	case Gc[Number]:
		return x.Object(), nil
	case Gc[List]:
		return x.Object(), nil
	case Gc[Function]:
		return x.Object(), nil
	case Gc[Symbol]:
		return x.Object(), nil
	case Gc[LispFloat]:
		return x.Object(), nil
	case Gc[Cons]:
		return x.Object(), nil
	case Gc[LispString]:
		return x.Object(), nil
	case Gc[LispVec]:
		return x.Object(), nil
	case Gc[Record]:
		return x.Object(), nil
	case Gc[HashTable]:
		return x.Object(), nil
	case Gc[ByteFn]:
		return x.Object(), nil
	case Gc[SubrFn]:
		return x.Object(), nil
	}
	return Nil.Object(), fmt.Errorf("cannot convert %T to a lisp value", v)
}

func intObject(n int64) (Gc[Object], error) {
	g, err := MakeInt(n)
	if err != nil {
		return Nil.Object(), err
	}
	return g.Object(), nil
}
