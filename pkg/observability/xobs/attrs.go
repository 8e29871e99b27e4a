package xobs

// Attr 跨度上的键值属性，如分区、资源类别、调用方标识。
// Value 为 any，后端转换识别常见标量类型，其余按字符串记录。
type Attr struct {
	Key   string
	Value any
}

// String 创建字符串属性。
func String(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// Bool 创建布尔属性。
func Bool(key string, value bool) Attr {
	return Attr{Key: key, Value: value}
}
