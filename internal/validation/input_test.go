package validation

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+7 900 555-66-77", "+79005556677"},
		{"  +7 (900) 555-66-77  ", "+79005556677"},
		{"89005556677", "89005556677"},
	}

	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, ожидалось %q", tc.in, got, tc.want)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	valid := []string{"+79005556677", "79005556677", "+380501234567"}
	for _, phone := range valid {
		if err := ValidatePhone(phone); err != nil {
			t.Errorf("ValidatePhone(%q) неожиданно вернул ошибку: %v", phone, err)
		}
	}

	invalid := []string{"", "abc", "+7 900 555", "123", "+7900555667788990011"}
	for _, phone := range invalid {
		if err := ValidatePhone(phone); err == nil {
			t.Errorf("ValidatePhone(%q) должен вернуть ошибку", phone)
		}
	}
}

func TestValidateLength(t *testing.T) {
	if err := ValidateLength("имя", "Иван", MinVisitorNameLength, MaxVisitorNameLength); err != nil {
		t.Errorf("кириллица считается по рунам: %v", err)
	}
	if err := ValidateLength("имя", "И", MinVisitorNameLength, MaxVisitorNameLength); err == nil {
		t.Error("однобуквенное имя должно быть отклонено")
	}

	long := make([]rune, MaxVisitorNameLength+1)
	for i := range long {
		long[i] = 'а'
	}
	if err := ValidateLength("имя", string(long), MinVisitorNameLength, MaxVisitorNameLength); err == nil {
		t.Error("слишком длинное имя должно быть отклонено")
	}
}

func TestValidateGroupSize(t *testing.T) {
	for _, size := range []int{MinGroupSize, 5, MaxGroupSize} {
		if err := ValidateGroupSize(size); err != nil {
			t.Errorf("ValidateGroupSize(%d) неожиданно вернул ошибку: %v", size, err)
		}
	}
	for _, size := range []int{0, -1, MaxGroupSize + 1} {
		if err := ValidateGroupSize(size); err == nil {
			t.Errorf("ValidateGroupSize(%d) должен вернуть ошибку", size)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("ivan.petrov@example.com"); err != nil {
		t.Errorf("корректный email отклонён: %v", err)
	}
	for _, email := range []string{"", "no-at-sign", "a@b", "a b@example.com"} {
		if err := ValidateEmail(email); err == nil {
			t.Errorf("ValidateEmail(%q) должен вернуть ошибку", email)
		}
	}
}
