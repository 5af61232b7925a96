package consts

// GrpcAccountInclude 用于 gRPC 区块订阅过滤器
// 只订阅包含 Token / Token-2022 / Metadata 程序调用的交易
var GrpcAccountInclude = []string{
	TokenProgramStr,
	TokenProgram2022Str,
	TokenMetaProgramIdStr,
}
