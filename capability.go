package quarry

// EncryptAlgo names an encryption capability.
// Use these constants in struct tags: `store.encrypt:"aes" load.decrypt:"aes"`
type EncryptAlgo string

const (
	// EncryptAES uses AES-GCM symmetric encryption.
	EncryptAES EncryptAlgo = "aes"

	// EncryptRSA uses RSA-OAEP asymmetric encryption.
	EncryptRSA EncryptAlgo = "rsa"
)

// HashAlgo names a hashing capability.
// Use these constants in struct tags: `receive.hash:"argon2"`
type HashAlgo string

const (
	// HashArgon2 uses Argon2id for password hashing (salted, slow).
	HashArgon2 HashAlgo = "argon2"

	// HashBcrypt uses bcrypt for password hashing (salted, slow).
	HashBcrypt HashAlgo = "bcrypt"

	// HashSHA256 uses SHA-256 for deterministic fingerprints. Not for passwords.
	HashSHA256 HashAlgo = "sha256"
)

// MaskType names a masking capability.
// Use these constants in struct tags: `send.mask:"email"`
type MaskType string

const (
	MaskSSN   MaskType = "ssn"
	MaskEmail MaskType = "email"
	MaskPhone MaskType = "phone"
	MaskCard  MaskType = "card"
	MaskName  MaskType = "name"
)

var validEncryptAlgos = map[EncryptAlgo]bool{
	EncryptAES: true,
	EncryptRSA: true,
}

var validHashAlgos = map[HashAlgo]bool{
	HashArgon2: true,
	HashBcrypt: true,
	HashSHA256: true,
}

var validMaskTypes = map[MaskType]bool{
	MaskSSN:   true,
	MaskEmail: true,
	MaskPhone: true,
	MaskCard:  true,
	MaskName:  true,
}

// IsValidEncryptAlgo returns true if the algorithm is a known encryption algorithm.
func IsValidEncryptAlgo(algo EncryptAlgo) bool {
	return validEncryptAlgos[algo]
}

// IsValidHashAlgo returns true if the algorithm is a known hash algorithm.
func IsValidHashAlgo(algo HashAlgo) bool {
	return validHashAlgos[algo]
}

// IsValidMaskType returns true if the type is a known mask type.
func IsValidMaskType(mt MaskType) bool {
	return validMaskTypes[mt]
}

// validateTransformTag checks a transform tag's value and that the field's
// shape can carry it. Every transform except redaction works on text.
func validateTransformTag(tag, val string, shape *Shape) error {
	switch tag {
	case tagReceiveHash:
		if !IsValidHashAlgo(HashAlgo(val)) {
			return ErrInvalidTag
		}
	case tagLoadDecrypt, tagStoreEncrypt:
		if !IsValidEncryptAlgo(EncryptAlgo(val)) {
			return ErrInvalidTag
		}
	case tagSendMask:
		if !IsValidMaskType(MaskType(val)) {
			return ErrInvalidTag
		}
	case tagSendRedact:
		return nil
	}

	s := shape
	if s.Kind == ShapeOptional {
		s = s.Elem
	}
	if s.Kind != ShapeScalar || s.Scalar != ScalarString {
		return ErrInvalidTag
	}
	return nil
}
