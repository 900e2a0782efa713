package crypto

// SecretKind 值的存储形态
type SecretKind string

const (
	SecretKindPlain     SecretKind = "plain"
	SecretKindEncrypted SecretKind = "encrypted"
)

// SecretValue 环境变量取值
// 明文与密文互斥，加密必然意味着该变量是机密变量，
// 因此 "非机密但已加密" 的组合无法表示。
type SecretValue struct {
	kind SecretKind
	data string
}

// Plain 构造明文值
func Plain(value string) SecretValue {
	return SecretValue{kind: SecretKindPlain, data: value}
}

// Encrypted 构造密文值
func Encrypted(ciphertext string) SecretValue {
	return SecretValue{kind: SecretKindEncrypted, data: ciphertext}
}

// Kind 返回存储形态
func (v SecretValue) Kind() SecretKind {
	return v.kind
}

// Raw 返回原始存储内容（明文或密文）
func (v SecretValue) Raw() string {
	return v.data
}

// IsEncrypted 是否为密文
func (v SecretValue) IsEncrypted() bool {
	return v.kind == SecretKindEncrypted
}

// Reveal 返回明文；密文时执行解密
func (v SecretValue) Reveal() (string, error) {
	if v.kind == SecretKindPlain {
		return v.data, nil
	}
	return Decrypt(v.data)
}

// Seal 返回密文形态；已是密文时原样返回
func (v SecretValue) Seal() (SecretValue, error) {
	if v.kind == SecretKindEncrypted {
		return v, nil
	}
	ciphertext, err := Encrypt(v.data)
	if err != nil {
		return SecretValue{}, err
	}
	return Encrypted(ciphertext), nil
}

// Unseal 返回明文形态；已是明文时原样返回
func (v SecretValue) Unseal() (SecretValue, error) {
	if v.kind == SecretKindPlain {
		return v, nil
	}
	plaintext, err := Decrypt(v.data)
	if err != nil {
		return SecretValue{}, err
	}
	return Plain(plaintext), nil
}
