// internal/service/inventory/port/policy.go
package port

// AdmissionFact 是准入策略的求值输入
type AdmissionFact struct {
	Quantity          int64
	ReferenceType     string
	ReferenceID       string
	Priority          string
	HasExpiry         bool
	MaxPerReservation int64
}

// AdmissionPolicy 在创建预占前做策略校验
// 规则以表达式形式下发，实现方负责编译与求值
type AdmissionPolicy interface {
	Admit(fact AdmissionFact) (bool, error)
}
