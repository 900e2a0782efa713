package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

var aesKey []byte

// Init 通过 PBKDF2 从口令派生 32 字节 AES 密钥
func Init(passphrase, salt string) error {
	if passphrase == "" {
		return fmt.Errorf("加密口令不能为空")
	}
	aesKey = pbkdf2.Key([]byte(passphrase), []byte(salt), 4096, 32, sha256.New)
	return nil
}

// Encrypt AES-GCM加密
func Encrypt(plaintext string) (string, error) {
	if len(aesKey) == 0 {
		return "", fmt.Errorf("加密密钥未初始化")
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return "", err
	}

	// 创建GCM
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	// 生成nonce
	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// 加密
	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)

	// Base64编码
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt AES-GCM解密
func Decrypt(ciphertext string) (string, error) {
	if len(aesKey) == 0 {
		return "", fmt.Errorf("加密密钥未初始化")
	}

	// Base64解码
	ciphertextBytes, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return "", err
	}

	// 创建GCM
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	// 提取nonce和密文
	nonceSize := aesGCM.NonceSize()
	if len(ciphertextBytes) < nonceSize {
		return "", fmt.Errorf("密文太短")
	}
	nonce, ciphertextBytes := ciphertextBytes[:nonceSize], ciphertextBytes[nonceSize:]

	// 解密
	plaintext, err := aesGCM.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
