// Copyright 2022 MatrixOrigin.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package row

// RowExistence is the expectation on row existence before a change is applied
type RowExistence int

const (
	// Ignore apply the change whether the row exists or not
	Ignore RowExistence = iota
	// ExpectExist apply the change only if the row exists
	ExpectExist
	// ExpectNotExist apply the change only if the row does not exist
	ExpectNotExist
)

func (e RowExistence) String() string {
	switch e {
	case ExpectExist:
		return "EXPECT_EXIST"
	case ExpectNotExist:
		return "EXPECT_NOT_EXIST"
	}
	return "IGNORE"
}

// Comparator relational operator of a column condition
type Comparator int

const (
	// Equal ==
	Equal Comparator = iota
	// NotEqual !=
	NotEqual
	// GreaterThan >
	GreaterThan
	// GreaterEqual >=
	GreaterEqual
	// LessThan <
	LessThan
	// LessEqual <=
	LessEqual
)

// ColumnCondition compares the latest version of a column with a value
type ColumnCondition struct {
	Column     string     `json:"column"`
	Comparator Comparator `json:"comparator"`
	Value      Value      `json:"value"`
	// PassIfMissing the condition is true if the column does not exist
	PassIfMissing bool `json:"pass-if-missing"`
}

// Match returns true if current satisfies the condition. current is nil if the
// column does not exist.
func (c ColumnCondition) Match(current *Value) (bool, error) {
	if current == nil {
		return c.PassIfMissing, nil
	}

	v, err := current.Compare(c.Value)
	if err != nil {
		return false, err
	}

	switch c.Comparator {
	case Equal:
		return v == 0, nil
	case NotEqual:
		return v != 0, nil
	case GreaterThan:
		return v > 0, nil
	case GreaterEqual:
		return v >= 0, nil
	case LessThan:
		return v < 0, nil
	case LessEqual:
		return v <= 0, nil
	}
	return false, nil
}

// Condition is the precondition of a change
type Condition struct {
	RowExistence RowExistence     `json:"row-existence"`
	Column       *ColumnCondition `json:"column,omitempty"`
}

// Size returns the data size of the condition
func (c Condition) Size() int64 {
	if c.Column == nil {
		return 0
	}
	return int64(len(c.Column.Column)) + c.Column.Value.Size()
}
