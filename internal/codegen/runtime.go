package codegen

import "fmt"

// runtimeTemplate is the reference-counted closure runtime every emitted
// module links against: the %lambda/%lambda_cont layout, the six
// externally-implemented functions (lambda_abort/lambda_mem_alloc/
// lambda_mem_free/lambda_unref/lambda_ret_call/lambda_null_call,
// supplied by the runtime library proper), and a set of
// available_externally helpers the optimizer is free to inline. Grounded
// on passes/llir/runtime.py's lambda_runtime_llir, with Python's
// str.format placeholders translated to fmt.Sprintf's %s/%d.
const runtimeTemplate = `target datalayout = "%[1]s"
target triple = "%[2]s"

%%lambda_fn = type %%lambda* (%%lambda*, %%lambda*, %%lambda_cont*)
%%lambda_cont = type { %%lambda_cont*, %%lambda* }
%%lambda_header = type { i%[3]d, i%[3]d, i%[3]d, %%lambda_fn* }
%%lambda = type { %%lambda_header, [0 x %%lambda*] }

declare external void @lambda_abort() nounwind noreturn
declare external noalias nonnull i8* @lambda_mem_alloc(i%[3]d) nounwind
declare external void @lambda_mem_free(i8* nocapture) nounwind
declare external void @lambda_unref(%%lambda* nonnull nocapture) nounwind
declare external nonnull %%lambda* @lambda_ret_call(%%lambda* nonnull, %%lambda* nonnull) nounwind
declare external nonnull %%lambda* @lambda_null_call(%%lambda* nonnull) nounwind

define available_externally noalias nonnull %%lambda* @lambda_alloc(i%[3]d %%0, i%[3]d %%1) unnamed_addr nofree nounwind {
    %%3 = getelementptr %%lambda, %%lambda* null, i%[3]d 0, i32 1, i%[3]d %%0
    %%4 = ptrtoint %%lambda** %%3 to i%[3]d
    %%5 = add i%[3]d %%4, %%1
    %%6 = call i8* @lambda_mem_alloc(i%[3]d %%5)
    %%7 = bitcast i8* %%6 to %%lambda*
    %%8 = getelementptr inbounds %%lambda, %%lambda* %%7, i%[3]d 0, i32 0, i32 0
    store i%[3]d 1, i%[3]d* %%8, align %[4]d
    %%9 = getelementptr inbounds %%lambda, %%lambda* %%7, i%[3]d 0, i32 0, i32 1
    store i%[3]d %%0, i%[3]d* %%9, align %[4]d
    %%10 = getelementptr inbounds %%lambda, %%lambda* %%7, i%[3]d 0, i32 0, i32 2
    store i%[3]d %%1, i%[3]d* %%10, align %[4]d
    ret %%lambda* %%7
}

define available_externally noalias nonnull %%lambda_cont* @lambda_cont_alloc(%%lambda_cont* nonnull readonly %%0, %%lambda* nonnull readonly %%1) unnamed_addr nofree nounwind {
    %%3 = getelementptr %%lambda_cont, %%lambda_cont* null, i%[3]d 1
    %%4 = ptrtoint %%lambda_cont* %%3 to i%[3]d
    %%5 = call i8* @lambda_mem_alloc(i%[3]d %%4)
    %%6 = bitcast i8* %%5 to %%lambda_cont*
    %%7 = getelementptr inbounds %%lambda_cont, %%lambda_cont* %%6, i%[3]d 0, i32 0
    store %%lambda_cont* %%0, %%lambda_cont** %%7, align %[4]d
    %%8 =  getelementptr inbounds %%lambda_cont, %%lambda_cont* %%6, i%[3]d 0, i32 1
    store %%lambda* %%1, %%lambda** %%8, align %[4]d
    ret %%lambda_cont* %%6
}

define available_externally void @lambda_ref(%%lambda* nonnull nocapture %%0, i%[3]d %%1) unnamed_addr argmemonly nofree nounwind {
    %%3 = getelementptr inbounds %%lambda, %%lambda* %%0, i%[3]d 0, i32 0, i32 0
    %%4 = load i%[3]d, i%[3]d* %%3, align %[4]d
    %%5 = add i%[3]d %%4, %%1
    store i%[3]d %%5, i%[3]d* %%3, align %[4]d
    ret void
}

define available_externally nonnull i8* @lambda_userdata(%%lambda* nonnull %%0) unnamed_addr argmemonly nofree nounwind {
    %%2 = getelementptr inbounds %%lambda, %%lambda* %%0, i%[3]d 0, i32 0, i32 1
    %%3 = load i%[3]d, i%[3]d* %%2, align %[4]d
    %%4 = getelementptr inbounds %%lambda, %%lambda* %%0, i%[3]d 0, i32 1, i%[3]d %%3
    %%5 = bitcast %%lambda** %%4 to i8*
    ret i8* %%5
}

define available_externally nonnull %%lambda* @lambda_call(%%lambda* nonnull %%0, %%lambda* nonnull %%1, %%lambda_cont* nonnull %%2) unnamed_addr nounwind {
    %%4 = getelementptr inbounds %%lambda, %%lambda* %%0, i%[3]d 0, i32 0, i32 3
    %%5 = load %%lambda* (%%lambda*, %%lambda*, %%lambda_cont*)*, %%lambda* (%%lambda*, %%lambda*, %%lambda_cont*)** %%4, align %[4]d
    %%6 = tail call %%lambda* %%5(%%lambda* %%1, %%lambda* %%0, %%lambda_cont* %%2)
    ret %%lambda* %%6
}

define available_externally nonnull %%lambda* @lambda_cont_call(%%lambda* nonnull %%0, %%lambda_cont* nonnull %%1) unnamed_addr nounwind {
    %%3 = getelementptr inbounds %%lambda_cont, %%lambda_cont* %%1, i%[3]d 0, i32 0
    %%4 = load %%lambda_cont*, %%lambda_cont** %%3, align %[4]d
    %%5 = getelementptr inbounds %%lambda_cont, %%lambda_cont* %%1, i%[3]d 0, i32 1
    %%6 = load %%lambda*, %%lambda** %%5, align %[4]d
    %%7 = bitcast %%lambda_cont* %%1 to i8*
    call void @lambda_mem_free(i8* %%7)
    %%8 = tail call %%lambda* @lambda_call(%%lambda* %%6, %%lambda* %%0, %%lambda_cont* %%4)
    ret %%lambda* %%8
}
`

// renderRuntime instantiates runtimeTemplate for one target architecture.
func renderRuntime(arch Architecture) string {
	return fmt.Sprintf(runtimeTemplate, arch.DataLayout, arch.Triple, arch.PtrSize*8, arch.PtrAlign)
}
